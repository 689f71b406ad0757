package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/provider"
)

func defaultsCfg() common.AnalysisConfig {
	return common.AnalysisConfig{
		MaxStrengths:       8,
		MaxWeaknesses:      8,
		MaxRecommendations: 10,
		Scoring:            common.DefaultScoring(),
	}
}

func okResult(name, grade string, confidence float32, strengths []string, recs ...provider.Recommendation) ProviderResult {
	a := provider.NormalizedAnalysis{
		Summary: provider.Summary{
			Grade:      grade,
			Score:      12,
			MaxScore:   15,
			Subject:    "Deutsch",
			Confidence: confidence,
		},
		Strengths:       strengths,
		Recommendations: recs,
		Metadata:        provider.Metadata{Provider: name},
	}
	a.ApplyDefaults()
	return ProviderResult{
		Provider:   name,
		Success:    true,
		Analysis:   &a,
		Duration:   200 * time.Millisecond,
		Confidence: confidence,
	}
}

func TestMergeOrderIndependence(t *testing.T) {
	a := okResult("openai", "2", 0.9, []string{"Vocabulary", "Spelling"})
	b := okResult("gemini", "2+", 0.8, []string{"Spelling", "Grammar"})
	c := okResult("anthropic", "2", 0.7, []string{"Handwriting"})

	perms := [][]ProviderResult{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}

	var first *MergedAnalysis
	for i, p := range perms {
		m := Merge(MergeInput{Results: p, Attempted: 3}, defaultsCfg())
		if first == nil {
			first = &m
			continue
		}
		assert.Equal(t, first.Summary, m.Summary, "permutation %d", i)
		assert.Equal(t, first.Strengths, m.Strengths, "permutation %d", i)
		assert.Equal(t, first.Merge.Providers, m.Merge.Providers, "permutation %d", i)
		assert.Equal(t, first.Merge.BaseProvider, m.Merge.BaseProvider, "permutation %d", i)
	}
}

func TestMergeDeduplicatesStrengths(t *testing.T) {
	a := okResult("openai", "2", 0.9, []string{"Good grasp of vocabulary", "Neat handwriting"})
	b := okResult("gemini", "2", 0.8, []string{" Good grasp of vocabulary ", "Strong spelling"})

	m := Merge(MergeInput{Results: []ProviderResult{a, b}, Attempted: 2}, defaultsCfg())

	count := 0
	for _, s := range m.Strengths {
		if s == "Good grasp of vocabulary" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, m.Strengths, 3)
}

func TestMergeCapsRecommendations(t *testing.T) {
	results := make([]ProviderResult, 0, 5)
	for p := 0; p < 5; p++ {
		recs := make([]provider.Recommendation, 0, 10)
		for i := 0; i < 10; i++ {
			recs = append(recs, provider.Recommendation{
				Priority: "medium",
				Action:   fmt.Sprintf("p%d action %d", p, i),
			})
		}
		results = append(results, okResult(fmt.Sprintf("p%d", p), "3", 0.8, nil, recs...))
	}

	m := Merge(MergeInput{Results: results, Attempted: 5}, defaultsCfg())
	assert.Len(t, m.Recommendations, 10)
	// The highest-scored result contributes first.
	assert.Contains(t, m.Recommendations[0].Action, m.Merge.BaseProvider)
}

func TestMergeConsensusScore(t *testing.T) {
	a := okResult("openai", "2", 0.9, nil)
	fail := ProviderResult{Provider: "gemini", Err: fmt.Errorf("timeout")}

	m := Merge(MergeInput{Results: []ProviderResult{a, fail}, Attempted: 2}, defaultsCfg())
	assert.Equal(t, 50, m.Merge.ConsensusScore)
	assert.Equal(t, []string{"openai"}, m.Merge.Providers)
	assert.Equal(t, "openai", m.Merge.BaseProvider)
}

func TestMergeConfidenceDefaults(t *testing.T) {
	a := okResult("openai", "2", 0, nil) // provider reported nothing usable

	m := Merge(MergeInput{Results: []ProviderResult{a}, Attempted: 1}, defaultsCfg())
	assert.InDelta(t, 0.85, m.Merge.BaseConfidence, 1e-6)
	assert.InDelta(t, 0.85, m.Merge.OCRConfidence, 1e-6) // absent OCR confidence
}

func TestMergeGradeAgreementRecorded(t *testing.T) {
	a := okResult("openai", "2", 0.9, nil)
	b := okResult("gemini", "2+", 0.85, nil)

	m := Merge(MergeInput{Results: []ProviderResult{a, b}, Attempted: 2}, defaultsCfg())
	require.Equal(t, constants.AgreementFull, m.Merge.GradeAgreement)
	assert.Equal(t, "2", NormalizeGrade(m.Summary.Grade))
}

func TestMergeLeavesBaseResultUntouched(t *testing.T) {
	a := okResult("openai", "2", 0.9, nil)
	// Spare capacity would let an aliased append write into the base's
	// backing array.
	a.Analysis.Metadata.ProcessingSteps = make([]string, 1, 4)
	a.Analysis.Metadata.ProcessingSteps[0] = "decode:strict"

	m := Merge(MergeInput{Results: []ProviderResult{a}, Attempted: 1}, defaultsCfg())
	require.Equal(t, []string{"decode:strict", "merge:multi-provider"}, m.Metadata.ProcessingSteps)

	a.Analysis.Metadata.ProcessingSteps = append(a.Analysis.Metadata.ProcessingSteps, "caller:later")
	assert.Equal(t, []string{"decode:strict"}, a.Analysis.Metadata.ProcessingSteps[:1])
	assert.Equal(t, "merge:multi-provider", m.Metadata.ProcessingSteps[1])
}

func TestMergeCarriesEvidenceAndText(t *testing.T) {
	a := okResult("openai", "2", 0.9, nil)

	m := Merge(MergeInput{
		Results:       []ProviderResult{a},
		Attempted:     1,
		OCRConfidence: 0.92,
		RawText:       "Note: 2\nDiktat 12/15",
	}, defaultsCfg())
	assert.InDelta(t, 0.92, m.Merge.OCRConfidence, 1e-6)
	assert.Equal(t, "Note: 2\nDiktat 12/15", m.Merge.RawText)
}
