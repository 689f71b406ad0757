// Package provider defines the common analysis shape every AI provider
// adapter must produce, plus the schema validation and lenient transformation
// shared by the adapters. Provider-specific response shapes never escape
// their adapter package.
package provider

import (
	"context"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/evidence"
)

// StudentProfile carries the child context the analysis is written for.
type StudentProfile struct {
	Name       string `json:"name,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"` // e.g. "3. Klasse"
}

// Request is the immutable per-upload analysis input. Created once, never
// mutated; every provider call operates on its own copy.
type Request struct {
	Text           string
	Evidence       *evidence.Evidence
	Profile        StudentProfile
	TargetLanguage string  // BCP-47-ish, e.g. "de", "en", "tr"
	OCRConfidence  float32 // 0..1, from the text resolver
}

// Summary is the headline block of a normalized analysis.
type Summary struct {
	Grade      string  `json:"grade"`
	Score      float32 `json:"score"`
	MaxScore   float32 `json:"max_score"`
	Percentage float32 `json:"percentage"`
	Subject    string  `json:"subject"`
	ChildName  string  `json:"child_name"`
	Confidence float32 `json:"confidence"` // normalized to 0..1 at the adapter boundary
}

// SectionPerformance describes one graded part of the test.
type SectionPerformance struct {
	Name    string `json:"name"`
	Score   string `json:"score"`
	Comment string `json:"comment"`
}

// TeacherFeedback collects what the correcting teacher wrote on the sheet.
type TeacherFeedback struct {
	Comments    []string `json:"comments"`
	MarkSymbols []string `json:"mark_symbols"`
}

// Recommendation is one actionable follow-up for the parents.
type Recommendation struct {
	Priority  string `json:"priority"` // high | medium | low
	Category  string `json:"category"`
	Action    string `json:"action"`
	Timeframe string `json:"timeframe"`
	Rationale string `json:"rationale"`
}

// Development holds the long-term notes beyond this single test.
type Development struct {
	FocusAreas []string `json:"focus_areas"`
	Outlook    string   `json:"outlook"`
}

// Metadata records where a normalized analysis came from.
type Metadata struct {
	Provider        string   `json:"provider"`
	Model           string   `json:"model"`
	ProcessingSteps []string `json:"processing_steps"`
}

// NormalizedAnalysis is the one shape every adapter must return. Every field
// has a defined default so a partially-populated provider response never
// produces nil-pointer failures downstream.
type NormalizedAnalysis struct {
	Summary         Summary              `json:"summary"`
	Sections        []SectionPerformance `json:"sections"`
	TeacherFeedback TeacherFeedback      `json:"teacher_feedback"`
	Strengths       []string             `json:"strengths"`
	Weaknesses      []string             `json:"weaknesses"`
	Recommendations []Recommendation     `json:"recommendations"`
	Development     Development          `json:"development"`
	Metadata        Metadata             `json:"metadata"`
}

// Analyzer is the interface the orchestrator depends on, one per provider.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req Request) (NormalizedAnalysis, error)
}

// Minimal returns the minimal-but-valid analysis an adapter falls back to
// when a response transforms badly: zeroed scores, empty lists, explicit
// "unable to determine" grade.
func Minimal(providerName, model string) NormalizedAnalysis {
	return NormalizedAnalysis{
		Summary: Summary{
			Grade: constants.GradeUnknown,
		},
		Sections:        []SectionPerformance{},
		TeacherFeedback: TeacherFeedback{Comments: []string{}, MarkSymbols: []string{}},
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []Recommendation{},
		Development:     Development{FocusAreas: []string{}},
		Metadata: Metadata{
			Provider:        providerName,
			Model:           model,
			ProcessingSteps: []string{"fallback:minimal"},
		},
	}
}

// ApplyDefaults fills nil slices so every list field is non-nil.
func (a *NormalizedAnalysis) ApplyDefaults() {
	if a.Sections == nil {
		a.Sections = []SectionPerformance{}
	}
	if a.TeacherFeedback.Comments == nil {
		a.TeacherFeedback.Comments = []string{}
	}
	if a.TeacherFeedback.MarkSymbols == nil {
		a.TeacherFeedback.MarkSymbols = []string{}
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Weaknesses == nil {
		a.Weaknesses = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []Recommendation{}
	}
	if a.Development.FocusAreas == nil {
		a.Development.FocusAreas = []string{}
	}
	if a.Metadata.ProcessingSteps == nil {
		a.Metadata.ProcessingSteps = []string{}
	}
	if a.Summary.Grade == "" {
		a.Summary.Grade = constants.GradeUnknown
	}
}
