// Package textextract resolves the raw document text of an uploaded test
// photo. A cloud recognition engine is tried first; a local tesseract engine
// backs it up when the cloud result is empty, weak, or unavailable.
package textextract

import "context"

// Result is one engine's reading of an image.
type Result struct {
	Text       string
	Confidence float32 // 0..1
}

// Engine turns raw image bytes into text plus a confidence estimate.
type Engine interface {
	Name() string
	Extract(ctx context.Context, image []byte) (Result, error)
}

// Resolution is the outcome of the cascade: the winning text, its confidence,
// which engine produced it, and whether the fallback engine was used at all.
type Resolution struct {
	Text         string
	Confidence   float32
	Engine       string
	UsedFallback bool
}
