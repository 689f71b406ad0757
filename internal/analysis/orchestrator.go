package analysis

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/provider"
)

// Orchestrator fans one request out to every configured provider
// concurrently and joins the outcomes, tolerating individual failures.
type Orchestrator struct {
	providers []provider.Analyzer
	timeout   time.Duration // per provider call
	logger    *slog.Logger
}

func NewOrchestrator(providers []provider.Analyzer, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{providers: providers, timeout: timeout, logger: logger}
}

// Run launches all providers and waits for every one to finish or time out.
// It returns the full result list, failures included, so the caller can
// merge whatever succeeded. With zero providers configured it fails
// immediately; with zero successes it returns an AllFailedError.
func (o *Orchestrator) Run(ctx context.Context, req provider.Request) ([]ProviderResult, error) {
	if len(o.providers) == 0 {
		return nil, common.NewAppError("CONFIG_ERROR",
			"no analysis providers enabled: set at least one of OPENAI_ENABLED, GEMINI_ENABLED, ANTHROPIC_ENABLED",
			common.ErrInvalidInput)
	}

	reqID := uuid.New().String()
	start := time.Now()
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	o.logger.Info("orchestrator.run.start",
		"req_id", reqID,
		"providers", strings.Join(names, ","),
		"timeout", o.timeout.String(),
	)

	// One pre-assigned slot per provider; no channel needed and the
	// result order is fixed regardless of completion order.
	results := make([]ProviderResult, len(o.providers))
	var wg sync.WaitGroup
	for i, p := range o.providers {
		wg.Add(1)
		go func(i int, p provider.Analyzer) {
			defer wg.Done()
			results[i] = o.callOne(ctx, p, req, reqID)
		}(i, p)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	o.logger.Info("orchestrator.run.done",
		"req_id", reqID,
		"attempted", len(results),
		"succeeded", succeeded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if succeeded == 0 {
		reasons := make(map[string]error, len(results))
		for _, r := range results {
			reasons[r.Provider] = r.Err
		}
		return results, &AllFailedError{Reasons: reasons}
	}
	return results, nil
}

func (o *Orchestrator) callOne(ctx context.Context, p provider.Analyzer, req provider.Request, reqID string) ProviderResult {
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	out, err := p.Analyze(cctx, req)
	elapsed := time.Since(start)

	if err != nil {
		o.logger.Warn("orchestrator.provider.failed",
			"req_id", reqID,
			"provider", p.Name(),
			"error", err,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return ProviderResult{Provider: p.Name(), Duration: elapsed, Err: err}
	}

	out.ApplyDefaults()
	o.logger.Info("orchestrator.provider.ok",
		"req_id", reqID,
		"provider", p.Name(),
		"grade", out.Summary.Grade,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return ProviderResult{
		Provider:   p.Name(),
		Success:    true,
		Analysis:   &out,
		Duration:   elapsed,
		Confidence: out.Summary.Confidence,
	}
}
