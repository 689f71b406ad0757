package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/provider"
)

// Name implements provider.Analyzer.
func (c *Client) Name() string { return constants.ProviderOpenAI }

// Analyze implements provider.Analyzer using text-only chat/completions with
// a JSON-object response format and local schema validation.
func (c *Client) Analyze(ctx context.Context, req provider.Request) (provider.NormalizedAnalysis, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("openai.analyze.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(req.Text),
		"has_evidence", req.Evidence != nil,
		"target_language", req.TargetLanguage,
	)

	sys := provider.BuildSystemPrompt(req)
	user := provider.BuildUserPrompt(req)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "system", "content": "JSON Schema:\n" + provider.SchemaJSON()},
			{"role": "user", "content": user + "\n\nReturn ONLY JSON that matches the provided schema."},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("openai.analyze.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return provider.NormalizedAnalysis{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return provider.NormalizedAnalysis{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return provider.NormalizedAnalysis{}, fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	out, outcome, err := provider.Decode([]byte(content), constants.ProviderOpenAI, c.cfg.Model)
	if err != nil {
		c.logger.Error("openai.analyze.decode_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return provider.NormalizedAnalysis{}, err
	}
	if outcome != provider.OutcomeStrict {
		c.logger.Warn("openai.analyze.degraded", "req_id", rid, "outcome", outcome.String())
	}

	c.logger.Info("openai.analyze.ok",
		"req_id", rid,
		"grade", out.Summary.Grade,
		"strengths", len(out.Strengths),
		"weaknesses", len(out.Weaknesses),
		"recommendations", len(out.Recommendations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("openai response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
