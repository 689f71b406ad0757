package textextract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
)

// Normalize collapses noisy whitespace and line-rule artifacts from scanned
// worksheets. Conservative: keeps line breaks; collapses >2 newlines into a
// single blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var (
	reGradeHint  = regexp.MustCompile(`(?i)\bnote\s*[:=]?\s*[1-6]\b`)
	rePointsHint = regexp.MustCompile(`\b\d{1,3}\s*/\s*\d{1,3}\b`)
	reTaskHint   = regexp.MustCompile(`(?i)\b(aufgabe|diktat|klassenarbeit|test|übung)\b`)
)

// heuristicConfidence estimates reading quality from school-test artifacts:
// a grade marking, a points tally, task headers, and enough content overall.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	if reGradeHint.MatchString(txt) {
		score += 0.2
	}
	if rePointsHint.MatchString(txt) {
		score += 0.15
	}
	if reTaskHint.MatchString(txt) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
