package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/lernblick/lernblick/internal/provider"
)

type fakeLLM struct {
	content string
	err     error
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeLLM) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.content, f.err
}

func testClient(fake *fakeLLM) *Client {
	c := NewClient("test-key", "claude-3-5-haiku-latest", slog.Default())
	c.newLLM = func(_ ...anthropic.Option) (llms.Model, error) { return fake, nil }
	return c
}

func TestAnalyzeValidResponse(t *testing.T) {
	c := testClient(&fakeLLM{content: `{
		"summary": {"grade": "2", "score": 12, "max_score": 15, "subject": "Deutsch", "confidence": 0.9},
		"strengths": ["Clear handwriting"],
		"weaknesses": ["Comma placement"],
		"recommendations": [{"priority": "high", "category": "grammar", "action": "Practice comma rules", "timeframe": "1 week"}]
	}`})

	out, err := c.Analyze(context.Background(), provider.Request{Text: "Note: 2"})
	require.NoError(t, err)
	assert.Equal(t, "2", out.Summary.Grade)
	assert.Equal(t, "anthropic", out.Metadata.Provider)
	assert.Len(t, out.Recommendations, 1)
}

func TestAnalyzeProseResponseFails(t *testing.T) {
	c := testClient(&fakeLLM{content: "I could not read the test sheet, sorry."})

	_, err := c.Analyze(context.Background(), provider.Request{Text: "blurry"})
	require.Error(t, err)
}

func TestAnalyzeTransportError(t *testing.T) {
	c := testClient(&fakeLLM{err: errors.New("overloaded")})

	_, err := c.Analyze(context.Background(), provider.Request{Text: "Note: 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestAnalyzeEmptyKey(t *testing.T) {
	c := NewClient("", "", slog.Default())
	_, err := c.Analyze(context.Background(), provider.Request{})
	require.Error(t, err)
}
