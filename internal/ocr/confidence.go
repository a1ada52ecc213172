package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reArticle = regexp.MustCompile(`(?i)(άρθρ[οα]|αρθρ[οα]|παρ\.|ν\.\s*\d+)`)
	reDate    = regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-](19|20)\d{2}\b`)
)

// heuristicConfidence scores accepted lines in 0..1 from their Greek share,
// volume and legal-document markers (article refs, dates).
func heuristicConfidence(lines []string) float32 {
	if len(lines) == 0 {
		return 0
	}
	joined := strings.Join(lines, "\n")
	score := float32(0.2) // base
	score += float32(GreekFraction(joined)) * 0.4
	if reArticle.MatchString(joined) {
		score += 0.15
	}
	if reDate.MatchString(joined) {
		score += 0.1
	}
	if utf8.RuneCountInString(joined) > 400 {
		score += 0.15
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
