package rules

import "strings"

// Key normalizes a merchant or description string into the canonical lookup
// form used by every store index: lowercase, trimmed, inner whitespace
// collapsed. All components must go through this one function so that the
// matcher, learner, and persisted mappings agree on identity.
func Key(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
