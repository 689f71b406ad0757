package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/evidence"
	"github.com/lernblick/lernblick/internal/provider"
)

// defaultConfidence is substituted when a confidence input is absent or NaN.
const defaultConfidence = 0.85

// MergeInput carries everything the merge needs beyond the results
// themselves.
type MergeInput struct {
	Results   []ProviderResult
	Attempted int // providers launched, successful or not

	OCRConfidence float32
	RawText       string
	Evidence      *evidence.Evidence
	Elapsed       time.Duration
}

// Merge combines the successful results into one MergedAnalysis. It must be
// called with at least one successful result.
//
// The result is a pure function of the multiset of inputs: successes are
// ranked by quality score with the provider name as a deterministic
// tie-break, so arrival order never changes the output.
func Merge(in MergeInput, cfg common.AnalysisConfig) MergedAnalysis {
	succ := make([]ProviderResult, 0, len(in.Results))
	for _, r := range in.Results {
		if r.Success && r.Analysis != nil {
			succ = append(succ, r)
		}
	}

	scores := make(map[string]float64, len(succ))
	for _, r := range succ {
		scores[r.Provider] = Score(r.Analysis, r.Confidence, cfg.Scoring)
	}
	sort.Slice(succ, func(i, j int) bool {
		si, sj := scores[succ[i].Provider], scores[succ[j].Provider]
		if si != sj {
			return si > sj
		}
		return succ[i].Provider < succ[j].Provider
	})

	base := succ[0]
	merged := *base.Analysis
	merged.ApplyDefaults()

	merged.Strengths = unionStrings(succ, func(a *provider.NormalizedAnalysis) []string {
		return a.Strengths
	}, cfg.MaxStrengths)
	merged.Weaknesses = unionStrings(succ, func(a *provider.NormalizedAnalysis) []string {
		return a.Weaknesses
	}, cfg.MaxWeaknesses)
	merged.Recommendations = unionRecommendations(succ, cfg.MaxRecommendations)

	votes := make([]GradeVote, 0, len(succ))
	for _, r := range succ {
		votes = append(votes, VoteFor(r.Provider, r.Analysis.Summary.Grade, r.Confidence))
	}
	consensus := ResolveGrade(votes)
	if consensus.Grade != "" {
		merged.Summary.Grade = consensus.Grade
	}

	providers := make([]string, 0, len(succ))
	for _, r := range succ {
		providers = append(providers, r.Provider)
	}
	sort.Strings(providers)

	// merged shares slice backing arrays with the base result; copy before
	// appending so the base's ProcessingSteps stays untouched.
	steps := make([]string, 0, len(merged.Metadata.ProcessingSteps)+1)
	steps = append(steps, merged.Metadata.ProcessingSteps...)
	merged.Metadata.ProcessingSteps = append(steps, "merge:multi-provider")

	return MergedAnalysis{
		NormalizedAnalysis: merged,
		Merge: MergeMetadata{
			Providers:      providers,
			BaseProvider:   base.Provider,
			ConsensusScore: consensusScore(len(succ), in.Attempted),
			OCRConfidence:  orDefault(in.OCRConfidence),
			BaseConfidence: orDefault(base.Confidence),
			GradeAgreement: consensus.Agreement,
			ProcessingTime: in.Elapsed,
			Evidence:       in.Evidence,
			RawText:        in.RawText,
		},
	}
}

func consensusScore(successful, attempted int) int {
	if attempted <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(successful) / float64(attempted)))
}

func orDefault(v float32) float32 {
	if v <= 0 || v > 1 || math.IsNaN(float64(v)) {
		return defaultConfidence
	}
	return v
}

// unionStrings unites one list field across results in rank order,
// deduplicated by exact trimmed match, capped at max.
func unionStrings(ranked []ProviderResult, pick func(*provider.NormalizedAnalysis) []string, max int) []string {
	out := make([]string, 0, max)
	seen := make(map[string]struct{})
	for _, r := range ranked {
		for _, s := range pick(r.Analysis) {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
			if len(out) >= max {
				return out
			}
		}
	}
	return out
}

// unionRecommendations dedupes by action text, first occurrence in rank
// order wins.
func unionRecommendations(ranked []ProviderResult, max int) []provider.Recommendation {
	out := make([]provider.Recommendation, 0, max)
	seen := make(map[string]struct{})
	for _, r := range ranked {
		for _, rec := range r.Analysis.Recommendations {
			key := strings.TrimSpace(rec.Action)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
			if len(out) >= max {
				return out
			}
		}
	}
	return out
}
