package tenant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		code     string
		role     Role
		sequence int64
		expect   string
	}{
		{name: "student pads to four digits", code: "NPS", role: RoleStudent, sequence: 7, expect: "NPS0007"},
		{name: "teacher", code: "NPS", role: RoleTeacher, sequence: 7, expect: "NPS_TEA007"},
		{name: "admin", code: "NPS", role: RoleAdmin, sequence: 42, expect: "NPS_ADM042"},
		{name: "parent", code: "NPS", role: RoleParent, sequence: 5, expect: "NPS_PAR005"},
		{name: "test entity", code: "NPS", role: RoleTest, sequence: 3, expect: "NPS_TEST003"},
		{name: "unknown role falls back to USR", code: "NPS", role: Role("librarian"), sequence: 1, expect: "NPS_USR001"},
		{name: "student sequence beyond pad width", code: "NPS", role: RoleStudent, sequence: 12345, expect: "NPS12345"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expect, FormatID(tt.code, tt.role, tt.sequence))
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	require.Equal(t, RoleStudent, ParseRole(" Student "))
	require.Equal(t, RoleTest, ParseRole("testdetails"))
	require.Equal(t, Role("user"), ParseRole("janitor"))
}
