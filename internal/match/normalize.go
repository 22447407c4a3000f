package match

import (
	"regexp"
	"strings"

	"github.com/siftd/sift/internal/rules"
)

// Transaction descriptions arrive with processor noise around the merchant
// name. These patterns strip the common prefixes and trailing reference
// numbers before matching.
var (
	processorPrefix = regexp.MustCompile(`(?i)^(pos|ach|dc|cc)\s+`)
	trailingRef     = regexp.MustCompile(`\s*[#*]\d+$`)
)

// NormalizeDescription reduces a raw description to the canonical lowercase
// form the matcher operates on. An all-noise description normalizes to "".
func NormalizeDescription(s string) string {
	s = strings.TrimSpace(s)
	s = processorPrefix.ReplaceAllString(s, "")
	s = trailingRef.ReplaceAllString(s, "")
	return rules.Key(s)
}
