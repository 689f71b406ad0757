package analysis

import (
	"sort"
	"strings"

	"github.com/lernblick/lernblick/constants"
)

// GradeVote is one provider's opinion on the grade. Votes are transient;
// only the resolved consensus survives the merge.
type GradeVote struct {
	Provider string
	Grade    string
	Tier     constants.ConfidenceTier
}

// Consensus is the resolved grade plus how strongly the providers agreed.
type Consensus struct {
	Grade      string // empty when no usable vote exists
	Agreement  constants.AgreementLevel
	Confidence constants.ConfidenceTier
}

// VoteFor builds a vote from a provider's grade and 0..1 confidence.
func VoteFor(providerName, grade string, confidence float32) GradeVote {
	tier := constants.TierNotFound
	if usableGrade(grade) {
		switch {
		case confidence >= 0.8:
			tier = constants.TierHigh
		case confidence >= 0.5:
			tier = constants.TierMedium
		default:
			tier = constants.TierLow
		}
	}
	return GradeVote{Provider: providerName, Grade: strings.TrimSpace(grade), Tier: tier}
}

// ResolveGrade applies the agreement rules over the votes:
//
//   - no usable votes: agreement none, no grade
//   - one vote: agreement partial, that vote's tier
//   - all votes share the same base digit (modifiers stripped):
//     agreement full, confidence high
//   - otherwise: majority on the normalized value, ties preferring a vote
//     whose tier is high, confidence forced to medium
//
// Never fabricates a grade: the consensus value is always one of the votes.
func ResolveGrade(votes []GradeVote) Consensus {
	usable := make([]GradeVote, 0, len(votes))
	for _, v := range votes {
		if v.Tier != constants.TierNotFound && usableGrade(v.Grade) {
			usable = append(usable, v)
		}
	}

	if len(usable) == 0 {
		return Consensus{Agreement: constants.AgreementNone, Confidence: constants.TierNotFound}
	}
	if len(usable) == 1 {
		return Consensus{
			Grade:      usable[0].Grade,
			Agreement:  constants.AgreementPartial,
			Confidence: usable[0].Tier,
		}
	}

	counts := make(map[string]int)
	for _, v := range usable {
		counts[NormalizeGrade(v.Grade)]++
	}
	if len(counts) == 1 {
		return Consensus{
			Grade:      usable[0].Grade,
			Agreement:  constants.AgreementFull,
			Confidence: constants.TierHigh,
		}
	}

	// Majority on the normalized value; process votes in a deterministic
	// order so equal inputs always resolve identically.
	ordered := make([]GradeVote, len(usable))
	copy(ordered, usable)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Grade != ordered[j].Grade {
			return ordered[i].Grade < ordered[j].Grade
		}
		return ordered[i].Provider < ordered[j].Provider
	})

	var winner GradeVote
	best := -1
	for _, v := range ordered {
		n := counts[NormalizeGrade(v.Grade)]
		switch {
		case n > best:
			winner, best = v, n
		case n == best && v.Tier == constants.TierHigh && winner.Tier != constants.TierHigh:
			winner = v
		}
	}

	return Consensus{
		Grade:      winner.Grade,
		Agreement:  constants.AgreementPartial,
		Confidence: constants.TierMedium,
	}
}

// NormalizeGrade strips +/- modifiers for agreement comparison. The
// normalized form is never displayed.
func NormalizeGrade(grade string) string {
	g := strings.TrimSpace(grade)
	g = strings.TrimRight(g, "+-")
	return strings.TrimSpace(g)
}

func usableGrade(grade string) bool {
	g := strings.TrimSpace(grade)
	return g != "" && !strings.EqualFold(g, constants.GradeUnknown)
}
