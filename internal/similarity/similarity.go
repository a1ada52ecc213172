// Package similarity scores how alike two strings are.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// Score returns (longer - editDistance) / longer over lowercased runes, in [0,1].
// Two empty strings are identical (1.0).
func Score(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longer := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longer {
		longer = n
	}
	if longer == 0 {
		return 1.0
	}
	d := levenshtein.Distance(a, b, nil)
	return float64(longer-d) / float64(longer)
}
