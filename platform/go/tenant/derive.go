package tenant

import (
	"errors"
	"regexp"
	"strings"
)

// DatabasePrefix is prepended to every normalized school code to form the
// database name owned by that school.
const DatabasePrefix = "school_"

var nonAlphanumPattern = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeCode lowercases a school code and maps every character outside
// [a-z0-9] to an underscore. Codes are case-insensitive everywhere in the
// system; this is the single place that defines the canonical form. Only an
// empty code is a programming error.
func NormalizeCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", errors.New("school code is required")
	}
	return nonAlphanumPattern.ReplaceAllString(strings.ToLower(trimmed), "_"), nil
}

// DatabaseName returns the canonical database name for a school code,
// `school_<normalized code>`. Pure; resolving the same code twice always
// yields the same name.
func DatabaseName(code string) (string, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}
	return DatabasePrefix + normalized, nil
}
