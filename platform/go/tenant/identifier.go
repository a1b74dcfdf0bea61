package tenant

import (
	"fmt"
	"strings"
)

// Role identifies the kind of account an external identifier is minted for.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
	RoleParent  Role = "parent"
	RoleTest    Role = "testdetails"
)

// Roles lists every role with its own sequence counter. Provisioning seeds a
// counter for each of these.
var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin, RoleParent, RoleTest}

// FormatID renders the external identifier for an entity. These strings are
// parsed by report cards, receipts, and downstream exports, so the layout is
// frozen:
//
//	student      NPS0007
//	admin        NPS_ADM042
//	teacher      NPS_TEA007
//	parent       NPS_PAR005
//	testdetails  NPS_TEST003
//	anything else NPS_USR001
//
// Students carry no role tag and a 4-digit counter; all staff roles use a
// 3-digit counter. The school code is used as given by the caller, not
// normalized, since display codes keep their original casing.
func FormatID(code string, role Role, sequence int64) string {
	switch role {
	case RoleStudent:
		return fmt.Sprintf("%s%04d", code, sequence)
	case RoleAdmin:
		return fmt.Sprintf("%s_ADM%03d", code, sequence)
	case RoleTeacher:
		return fmt.Sprintf("%s_TEA%03d", code, sequence)
	case RoleParent:
		return fmt.Sprintf("%s_PAR%03d", code, sequence)
	case RoleTest:
		return fmt.Sprintf("%s_TEST%03d", code, sequence)
	default:
		return fmt.Sprintf("%s_USR%03d", code, sequence)
	}
}

// ParseRole maps a stored role string to a Role, defaulting unknown values to
// the generic user role so ID formatting never fails on legacy data.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleParent, RoleTest:
		return Role(strings.ToLower(strings.TrimSpace(s)))
	default:
		return Role("user")
	}
}
