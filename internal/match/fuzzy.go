package match

import (
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity scores how alike two normalized strings are on a 0-100 scale.
// The default edit options charge substitutions as a delete plus an insert,
// so dividing the distance by the combined length gives the familiar
// two-way-ratio scale.
func Similarity(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return int(math.Round((1 - float64(distance)/float64(total)) * 100))
}
