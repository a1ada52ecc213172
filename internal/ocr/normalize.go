package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reDisallowed = regexp.MustCompile(`[^\x{0370}-\x{03FF}\w\s.,()%\-€₯$&@#*+=/\\'"°²³½¼¾×÷±<>{}\[\]]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Line acceptance thresholds.
const (
	MinLineLength    = 10
	MinGreekFraction = 0.3
)

// CleanLine trims, strips characters outside the allow-list (Greek block, ASCII word
// characters, common punctuation, currency and math symbols) and collapses whitespace.
func CleanLine(line string) string {
	s := strings.TrimSpace(line)
	s = reDisallowed.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsGreek reports whether r is in the Greek and Coptic block.
func IsGreek(r rune) bool { return r >= 0x0370 && r <= 0x03FF }

// GreekFraction is the share of runes in s that belong to the Greek block.
func GreekFraction(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	greek := 0
	for _, r := range s {
		if IsGreek(r) {
			greek++
		}
	}
	return float64(greek) / float64(n)
}

// IsValidLine accepts a cleaned line of at least MinLineLength runes whose Greek
// share is strictly above MinGreekFraction.
func IsValidLine(line string) bool {
	if utf8.RuneCountInString(line) < MinLineLength {
		return false
	}
	return GreekFraction(line) > MinGreekFraction
}

// AcceptedLines cleans every line of raw and keeps the valid ones in order.
// Rejected lines are dropped, never repaired.
func AcceptedLines(raw string) []string {
	if raw == "" {
		return nil
	}
	raw = reCRLF.ReplaceAllString(raw, "\n")
	var out []string
	for _, ln := range strings.Split(raw, "\n") {
		if c := CleanLine(ln); IsValidLine(c) {
			out = append(out, c)
		}
	}
	return out
}
