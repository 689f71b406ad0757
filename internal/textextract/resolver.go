package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ResolverConfig holds the cascade thresholds.
type ResolverConfig struct {
	FallbackThreshold float32       // primary below this (or empty) triggers fallback, default 0.85
	OutrightThreshold float32       // top candidate at/above this wins immediately, default 0.90
	TieWindow         float32       // candidates closer than this prefer longer text, default 0.10
	FallbackTimeout   time.Duration // budget for the local engine, default 30s
}

// Resolver runs the primary engine and conditionally the fallback, then picks
// the best candidate. The fallback is never run speculatively in parallel;
// it only spends local CPU when the primary reading is in doubt.
type Resolver struct {
	primary  Engine
	fallback Engine
	cfg      ResolverConfig
	logger   *slog.Logger
}

func NewResolver(primary, fallback Engine, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FallbackThreshold <= 0 {
		cfg.FallbackThreshold = 0.85
	}
	if cfg.OutrightThreshold <= 0 {
		cfg.OutrightThreshold = 0.90
	}
	if cfg.TieWindow <= 0 {
		cfg.TieWindow = 0.10
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 30 * time.Second
	}
	return &Resolver{primary: primary, fallback: fallback, cfg: cfg, logger: logger}
}

type candidate struct {
	res    Result
	engine string
}

// Resolve runs the cascade. It fails only if every attempted engine fails.
func (r *Resolver) Resolve(ctx context.Context, image []byte) (Resolution, error) {
	start := time.Now()

	var candidates []candidate
	primaryRes, primaryErr := r.primary.Extract(ctx, image)
	if primaryErr != nil {
		r.logger.Warn("textextract.primary_failed", "engine", r.primary.Name(), "error", primaryErr)
	} else {
		candidates = append(candidates, candidate{res: primaryRes, engine: r.primary.Name()})
		if primaryRes.Text != "" && primaryRes.Confidence >= r.cfg.FallbackThreshold {
			r.logger.Info("textextract.primary_ok",
				"engine", r.primary.Name(),
				"confidence", primaryRes.Confidence,
				"text_len", len(primaryRes.Text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return Resolution{
				Text:       primaryRes.Text,
				Confidence: primaryRes.Confidence,
				Engine:     r.primary.Name(),
			}, nil
		}
	}

	// Primary empty, weak, or failed: try the local engine under its own budget.
	fctx, cancel := context.WithTimeout(ctx, r.cfg.FallbackTimeout)
	fallbackRes, fallbackErr := r.fallback.Extract(fctx, image)
	cancel()
	if fallbackErr != nil {
		r.logger.Warn("textextract.fallback_failed", "engine", r.fallback.Name(), "error", fallbackErr)
	} else {
		candidates = append(candidates, candidate{res: fallbackRes, engine: r.fallback.Name()})
	}

	if len(candidates) == 0 {
		return Resolution{}, fmt.Errorf("all OCR engines failed: %s: %v; %s: %v",
			r.primary.Name(), primaryErr, r.fallback.Name(), fallbackErr)
	}

	best := pickBest(candidates, r.cfg)
	r.logger.Info("textextract.resolved",
		"engine", best.engine,
		"confidence", best.res.Confidence,
		"text_len", len(best.res.Text),
		"used_fallback", true,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Resolution{
		Text:         best.res.Text,
		Confidence:   best.res.Confidence,
		Engine:       best.engine,
		UsedFallback: true,
	}, nil
}

// pickBest selects among candidates:
//   - single candidate wins by default
//   - top confidence at/above the outright threshold wins
//   - near-tied confidences prefer the longer text (longer output usually
//     indicates a more complete reading; a heuristic, not a guarantee)
//   - otherwise strictly higher confidence wins
func pickBest(cands []candidate, cfg ResolverConfig) candidate {
	if len(cands) == 1 {
		return cands[0]
	}
	top, second := cands[0], cands[1]
	if second.res.Confidence > top.res.Confidence {
		top, second = second, top
	}
	if top.res.Confidence >= cfg.OutrightThreshold {
		return top
	}
	if top.res.Confidence-second.res.Confidence < cfg.TieWindow {
		if len(second.res.Text) > len(top.res.Text) {
			return second
		}
	}
	return top
}
