package analysis

import (
	"math"
	"strings"

	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/provider"
)

// Score computes a quality score for one result; higher is better. It is a
// pure function over the single result, so scoring N results in any order
// yields the same values.
//
// The base is the provider's self-reported confidence on a 0..100 scale,
// plus presence bonuses per the configured weights.
func Score(a *provider.NormalizedAnalysis, confidence float32, w common.ScoringConfig) float64 {
	if a == nil {
		return 0
	}
	score := float64(clamp01(confidence)) * 100

	if hasGrade(a.Summary.Grade) {
		score += w.GradeBonus
	}
	if a.Summary.Score > 0 && a.Summary.MaxScore > 0 {
		score += w.ScoreBonus
	}
	if strings.TrimSpace(a.Summary.Subject) != "" {
		score += w.SubjectBonus
	}

	sections := 0.0
	for _, s := range a.Sections {
		if strings.TrimSpace(s.Name) != "" {
			sections += w.SectionBonus
		}
	}
	score += math.Min(sections, w.SectionCap)

	if n := len(a.Recommendations); n > 0 {
		score += w.RecBonus
		total := 0
		for _, r := range a.Recommendations {
			total += len(r.Action)
		}
		avg := float64(total) / float64(n)
		score += math.Min(avg*w.RecLengthWeight, w.RecLengthCap)
	}

	if len(a.Strengths) > 2 {
		score += w.ListDepthBonus
	}
	if len(a.Weaknesses) > 2 {
		score += w.ListDepthBonus
	}

	if len(a.Development.FocusAreas) > 0 {
		score += w.DevelopmentBonus
	}
	if strings.TrimSpace(a.Development.Outlook) != "" {
		score += w.DevelopmentBonus
	}

	return score
}

func hasGrade(grade string) bool {
	g := strings.TrimSpace(grade)
	return g != "" && !strings.EqualFold(g, "unable to determine")
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
