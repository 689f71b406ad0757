package textextract

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/lernblick/lernblick/constants"
)

// VisionConfig configures the Google Cloud Vision engine.
type VisionConfig struct {
	APIKey    string
	Languages []string // language hints, e.g. ["deu", "eng"]
}

// VisionEngine is the primary cloud text-recognition engine.
type VisionEngine struct {
	cfg    VisionConfig
	logger *slog.Logger

	// newService lets tests substitute the API client.
	newService func(ctx context.Context) (*vision.Service, error)
}

func NewVisionEngine(cfg VisionConfig, logger *slog.Logger) *VisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"deu", "eng"}
	}
	e := &VisionEngine{cfg: cfg, logger: logger}
	e.newService = func(ctx context.Context) (*vision.Service, error) {
		return vision.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	}
	return e
}

func (e *VisionEngine) Name() string { return constants.EngineVision }

// Extract sends the image to the document-text-detection endpoint.
func (e *VisionEngine) Extract(ctx context.Context, image []byte) (Result, error) {
	start := time.Now()
	if e.cfg.APIKey == "" {
		return Result{}, fmt.Errorf("vision: API key is empty")
	}

	svc, err := e.newService(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("vision: create service: %w", err)
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{
				Type: "DOCUMENT_TEXT_DETECTION",
			}},
			ImageContext: &vision.ImageContext{LanguageHints: e.cfg.Languages},
		}},
	}

	resp, err := svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		e.logger.Error("vision.annotate_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, fmt.Errorf("vision: annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return Result{}, fmt.Errorf("vision: empty response")
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return Result{}, fmt.Errorf("vision: %s (code %d)", r.Error.Message, r.Error.Code)
	}
	if r.FullTextAnnotation == nil {
		e.logger.Warn("vision.no_text", "elapsed_ms", time.Since(start).Milliseconds())
		return Result{Text: "", Confidence: 0}, nil
	}

	text := Normalize(r.FullTextAnnotation.Text)
	conf := blockConfidence(r.FullTextAnnotation)
	heur := heuristicConfidence(text)
	// blend: weight measured confidence higher when present
	var blended float32
	if conf > 0 {
		blended = 0.7*conf + 0.3*heur
	} else {
		blended = heur
	}
	if blended > 1.0 {
		blended = 1.0
	}

	e.logger.Info("vision.ok",
		"text_len", len(text),
		"block_confidence", conf,
		"confidence", blended,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Text: text, Confidence: blended}, nil
}

// blockConfidence averages the per-block confidences reported by the API.
func blockConfidence(fta *vision.TextAnnotation) float32 {
	var sum float64
	var n int
	for _, page := range fta.Pages {
		for _, block := range page.Blocks {
			if block.Confidence > 0 {
				sum += block.Confidence
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / float64(n))
}
