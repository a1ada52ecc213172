package ocr

import "unicode/utf8"

// Decision is the text chosen for a page and where it came from.
type Decision struct {
	Source string // engine name, or "" when neither engine produced lines
	Lines  []string
	Text   string
}

// Arbiter picks one candidate per page. It never blends the two.
//
// With MinPrimaryChars == 0 the primary candidate wins whenever it has at least
// one accepted line. A positive MinPrimaryChars lets the fallback win when the
// primary's accepted text is shorter than that and the fallback has lines.
type Arbiter struct {
	MinPrimaryChars int
}

func (a Arbiter) Choose(primary, fallback Candidate) Decision {
	if len(primary.Lines) > 0 {
		if a.MinPrimaryChars <= 0 || len(fallback.Lines) == 0 || lineChars(primary.Lines) >= a.MinPrimaryChars {
			return decide(primary)
		}
	}
	if len(fallback.Lines) > 0 {
		return decide(fallback)
	}
	return Decision{}
}

func decide(c Candidate) Decision {
	return Decision{Source: c.Engine, Lines: c.Lines, Text: c.Text()}
}

func lineChars(lines []string) int {
	n := 0
	for _, l := range lines {
		n += utf8.RuneCountInString(l)
	}
	return n
}
