// Package anthropic adapts Claude models to the provider.Analyzer contract.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/provider"
)

type Client struct {
	apiKey string
	model  string
	logger *slog.Logger

	// newLLM is swapped in tests.
	newLLM func(opts ...anthropic.Option) (llms.Model, error)
}

func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
		logger: logger,
		newLLM: func(opts ...anthropic.Option) (llms.Model, error) {
			return anthropic.New(opts...)
		},
	}
}

func (c *Client) Name() string { return constants.ProviderAnthropic }

// Analyze implements provider.Analyzer.
func (c *Client) Analyze(ctx context.Context, req provider.Request) (provider.NormalizedAnalysis, error) {
	start := time.Now()
	if c.apiKey == "" {
		return provider.NormalizedAnalysis{}, errors.New("anthropic: API key is empty")
	}

	llm, err := c.newLLM(
		anthropic.WithToken(c.apiKey),
		anthropic.WithModel(c.model),
	)
	if err != nil {
		return provider.NormalizedAnalysis{}, fmt.Errorf("anthropic: new client: %w", err)
	}

	system := provider.BuildSystemPrompt(req) +
		"\nAnswer strictly with a single JSON object matching this schema. No commentary.\n" +
		provider.SchemaJSON()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: system}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: provider.BuildUserPrompt(req)}},
		},
	}

	resp, err := llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithMaxTokens(4096),
	)
	if err != nil {
		return provider.NormalizedAnalysis{}, fmt.Errorf("anthropic: generate: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return provider.NormalizedAnalysis{}, errors.New("anthropic: empty response")
	}

	out, outcome, derr := provider.Decode([]byte(resp.Choices[0].Content), constants.ProviderAnthropic, c.model)
	if derr != nil {
		return provider.NormalizedAnalysis{}, derr
	}
	if outcome != provider.OutcomeStrict {
		c.logger.Warn("anthropic.analyze.degraded", "outcome", outcome.String())
	}
	c.logger.Info("anthropic.analyze.ok",
		"model", c.model,
		"grade", out.Summary.Grade,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
