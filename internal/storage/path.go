package storage

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

const anonymousCaller = "anonymous"

// SafeName replaces every rune that is not a letter or digit with '_'.
func SafeName(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, value)
}

// CallerID picks the first non-blank candidate, sanitized, falling back to
// "anonymous".
func CallerID(candidates ...string) string {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return SafeName(strings.TrimSpace(candidate))
		}
	}
	return anonymousCaller
}

// BuildChartKey returns <caller>/<session>/<index>_<safe title>.png. index
// is 1-based.
func BuildChartKey(caller, session string, index int, title string) (string, error) {
	if caller == "" {
		return "", fmt.Errorf("caller is required")
	}
	if session == "" || strings.ContainsAny(session, `/\`) || session == "." || session == ".." {
		return "", fmt.Errorf("invalid session id: %q", session)
	}
	if index < 1 {
		return "", fmt.Errorf("chart index must be >= 1")
	}
	return path.Join(
		SafeName(caller),
		session,
		fmt.Sprintf("%d_%s.png", index, SafeName(title)),
	), nil
}
