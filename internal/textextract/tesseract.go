package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/lernblick/lernblick/constants"
)

// TesseractConfig configures the local fallback engine.
type TesseractConfig struct {
	Languages          []string      // default ["deu", "eng"]
	TerminationTimeout time.Duration // grace period for a stuck worker, default 5s
}

// TesseractEngine runs OCR locally through gosseract. Each call is a scoped
// resource: the client is acquired per call and released on every exit path,
// including timeout, so a stuck worker cannot hang the request.
type TesseractEngine struct {
	cfg    TesseractConfig
	logger *slog.Logger

	// clientFactory lets tests stub out the cgo-backed client.
	clientFactory func() *gosseract.Client
}

func NewTesseractEngine(cfg TesseractConfig, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"deu", "eng"}
	}
	if cfg.TerminationTimeout <= 0 {
		cfg.TerminationTimeout = 5 * time.Second
	}
	return &TesseractEngine{cfg: cfg, logger: logger, clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return constants.EngineTesseract }

type tessOutput struct {
	text string
	conf float32
	err  error
}

// Extract recognizes the full image. The recognition itself runs on a worker
// goroutine; if the context expires the worker gets a short termination grace
// period before the call returns, and the worker's deferred Close still
// releases the client whenever it finishes.
func (e *TesseractEngine) Extract(ctx context.Context, image []byte) (Result, error) {
	start := time.Now()
	done := make(chan tessOutput, 1)

	go func() {
		c := e.clientFactory()
		defer c.Close()
		done <- e.recognize(c, image)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			e.logger.Error("tesseract.failed", "error", out.err, "elapsed_ms", time.Since(start).Milliseconds())
			return Result{}, out.err
		}
		e.logger.Info("tesseract.ok",
			"text_len", len(out.text),
			"confidence", out.conf,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{Text: out.text, Confidence: out.conf}, nil
	case <-ctx.Done():
		// Secondary, shorter termination timeout: give the worker a moment to
		// finish and release its client before abandoning it.
		select {
		case out := <-done:
			if out.err != nil {
				return Result{}, out.err
			}
			return Result{Text: out.text, Confidence: out.conf}, nil
		case <-time.After(e.cfg.TerminationTimeout):
			e.logger.Warn("tesseract.abandoned", "elapsed_ms", time.Since(start).Milliseconds())
			return Result{}, fmt.Errorf("tesseract: %w", ctx.Err())
		}
	}
}

// RecognizeCrop is the micro-OCR entry point used for evidence crops: text
// only, confidence discarded, same worker-lifecycle guarantees as Extract.
func (e *TesseractEngine) RecognizeCrop(ctx context.Context, png []byte) (string, error) {
	res, err := e.Extract(ctx, png)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (e *TesseractEngine) recognize(c *gosseract.Client, image []byte) tessOutput {
	if err := c.SetImageFromBytes(image); err != nil {
		return tessOutput{err: fmt.Errorf("tesseract: set image: %w", err)}
	}
	if err := c.SetLanguage(e.cfg.Languages...); err != nil {
		return tessOutput{err: fmt.Errorf("tesseract: set languages: %w", err)}
	}
	text, err := c.Text()
	if err != nil {
		return tessOutput{err: fmt.Errorf("tesseract: recognize: %w", err)}
	}
	text = Normalize(strings.TrimSpace(text))

	conf := wordConfidence(c)
	heur := heuristicConfidence(text)
	var blended float32
	if conf > 0 {
		blended = 0.7*conf + 0.3*heur
	} else {
		blended = heur
	}
	if blended > 1.0 {
		blended = 1.0
	}
	return tessOutput{text: text, conf: blended}
}

// wordConfidence averages word-level confidences in 0..1.
func wordConfidence(c *gosseract.Client) float32 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return float32(sum / float64(len(boxes)))
}
