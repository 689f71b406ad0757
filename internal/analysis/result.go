// Package analysis turns N independent provider results into one merged
// record: per-result quality scoring, order-independent merging, and a
// grade consensus across the providers' votes.
package analysis

import (
	"time"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/evidence"
	"github.com/lernblick/lernblick/internal/provider"
)

// ProviderResult is one provider's outcome, success or failure. The
// orchestrator owns these exclusively until merge.
type ProviderResult struct {
	Provider   string
	Success    bool
	Analysis   *provider.NormalizedAnalysis // nil on failure
	Duration   time.Duration
	Confidence float32 // 0..1, normalized at the adapter boundary
	Err        error   // nil on success
}

// MergeMetadata records provenance for a merged analysis: which providers
// contributed, how well they agreed, and the inputs the merge saw.
type MergeMetadata struct {
	Providers      []string                 `json:"providers"`
	BaseProvider   string                   `json:"base_provider"`
	ConsensusScore int                      `json:"consensus_score"` // 0..100
	OCRConfidence  float32                  `json:"ocr_confidence"`
	BaseConfidence float32                  `json:"base_confidence"`
	GradeAgreement constants.AgreementLevel `json:"grade_agreement"`
	ProcessingTime time.Duration            `json:"processing_time"`
	Evidence       *evidence.Evidence       `json:"evidence,omitempty"`
	RawText        string                   `json:"raw_text,omitempty"`
}

// MergedAnalysis is the final per-upload output. Constructed once,
// persisted immediately, never mutated afterwards.
type MergedAnalysis struct {
	provider.NormalizedAnalysis

	Merge MergeMetadata `json:"merge"`
}
