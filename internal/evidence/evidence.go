// Package evidence derives pixel-level grading signals from a photographed
// school test before any AI provider is consulted. Red and blue ink are the
// usual teacher-correction colors on German test sheets; their density and
// placement are strong hints for where answers and marks live.
package evidence

import "context"

// Region is an answer-region rectangle in downsampled-image pixel coordinates.
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float32 `json:"score"` // red+blue density inside the region, 0..1
}

// Evidence is the visual-evidence record attached to an analysis request and
// later carried in the merged result's metadata for transparency.
// Produced once, read-only thereafter.
type Evidence struct {
	DetectedGrade     *int     `json:"detected_grade,omitempty"`
	MarkSymbols       []string `json:"mark_symbols"`
	Points            *string  `json:"points,omitempty"` // "n/m"
	TeacherComment    *string  `json:"teacher_comment,omitempty"`
	CorrectionDensity float32  `json:"correction_density"` // 0..1
	AnswerRegions     []Region `json:"answer_regions"`
	Confidence        float32  `json:"confidence"` // 0..1
}

// TextReader runs narrowly-scoped OCR on an encoded image crop.
// Implemented by the local tesseract engine; stubbed in tests.
type TextReader interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// ReaderFunc adapts a function to the TextReader interface.
type ReaderFunc func(ctx context.Context, png []byte) (string, error)

func (f ReaderFunc) Recognize(ctx context.Context, png []byte) (string, error) {
	return f(ctx, png)
}
