// Package gemini adapts Google's Gemini models to the provider.Analyzer
// contract. Gemini self-reports confidence on a 0–100 scale; the shared
// decoder normalizes it to 0–1 at this boundary.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/provider"
)

// generator is the slice of *genai.GenerativeModel the adapter calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	apiKey string
	model  string
	logger *slog.Logger

	// newGenerator is swapped in tests. The returned closer releases the
	// underlying connection.
	newGenerator func(ctx context.Context, system string) (generator, func(), error)

	retryDelay time.Duration
}

func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		logger:     logger,
		retryDelay: 500 * time.Millisecond,
	}
	c.newGenerator = func(ctx context.Context, system string) (generator, func(), error) {
		cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
		if err != nil {
			return nil, nil, err
		}
		m := cl.GenerativeModel(c.model)
		m.GenerationConfig = genai.GenerationConfig{
			Temperature:      ptrFloat32(0),
			ResponseMIMEType: "application/json",
		}
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
		return m, func() { _ = cl.Close() }, nil
	}
	return c
}

func (c *Client) Name() string { return constants.ProviderGemini }

// Analyze implements provider.Analyzer.
func (c *Client) Analyze(ctx context.Context, req provider.Request) (provider.NormalizedAnalysis, error) {
	start := time.Now()
	if c.apiKey == "" {
		return provider.NormalizedAnalysis{}, errors.New("gemini: API key is empty")
	}

	system := provider.BuildSystemPrompt(req) +
		"\nJSON Schema for the answer:\n" + provider.SchemaJSON()
	gen, closeFn, err := c.newGenerator(ctx, system)
	if err != nil {
		return provider.NormalizedAnalysis{}, fmt.Errorf("gemini: new client: %w", err)
	}
	defer closeFn()

	parts := []genai.Part{
		genai.Text(provider.BuildUserPrompt(req) + "\n\nAnswer strictly with JSON matching the schema. No commentary."),
	}

	// Retry transient failures; malformed answers are handled by the decoder.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := gen.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			c.logger.Warn("gemini.analyze.retry", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return provider.NormalizedAnalysis{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
			continue
		}
		content := firstText(resp)
		if content == "" {
			lastErr = errors.New("gemini: empty response")
			continue
		}
		out, outcome, derr := provider.Decode([]byte(content), constants.ProviderGemini, c.model)
		if derr != nil {
			return provider.NormalizedAnalysis{}, derr
		}
		if outcome != provider.OutcomeStrict {
			c.logger.Warn("gemini.analyze.degraded", "outcome", outcome.String())
		}
		c.logger.Info("gemini.analyze.ok",
			"model", c.model,
			"grade", out.Summary.Grade,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, nil
	}
	return provider.NormalizedAnalysis{}, fmt.Errorf("gemini: %w", lastErr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
