package gemini

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernblick/lernblick/internal/provider"
)

type fakeGenerator struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("no more responses")
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
		}},
	}
}

func testClient(fake *fakeGenerator) *Client {
	c := NewClient("test-key", "gemini-2.5-flash", slog.Default())
	c.retryDelay = time.Millisecond
	c.newGenerator = func(_ context.Context, _ string) (generator, func(), error) {
		return fake, func() {}, nil
	}
	return c
}

func TestAnalyzeValidResponse(t *testing.T) {
	fake := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse(`{
		"summary": {"grade": "2", "score": 12, "max_score": 15, "subject": "Deutsch", "confidence": 0.9},
		"strengths": ["Clear handwriting"],
		"weaknesses": ["Comma placement"],
		"recommendations": [{"priority": "high", "category": "grammar", "action": "Practice comma rules", "timeframe": "1 week"}]
	}`)}}
	c := testClient(fake)

	out, err := c.Analyze(context.Background(), provider.Request{Text: "Note: 2"})
	require.NoError(t, err)
	assert.Equal(t, "2", out.Summary.Grade)
	assert.Equal(t, "gemini", out.Metadata.Provider)
	assert.Len(t, out.Recommendations, 1)
	assert.Equal(t, 1, fake.calls)
}

func TestAnalyzeFencedResponse(t *testing.T) {
	fake := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse("```json\n" + `{
		"summary": {"grade": "3", "subject": "Mathematik", "confidence": 0.8}
	}` + "\n```")}}
	c := testClient(fake)

	out, err := c.Analyze(context.Background(), provider.Request{Text: "Note: 3"})
	require.NoError(t, err)
	assert.Equal(t, "3", out.Summary.Grade)
}

func TestAnalyzeRetriesTransientError(t *testing.T) {
	fake := &fakeGenerator{
		errs: []error{errors.New("503 overloaded"), nil},
		responses: []*genai.GenerateContentResponse{nil, textResponse(`{
			"summary": {"grade": "1", "subject": "Englisch", "confidence": 0.95}
		}`)},
	}
	c := testClient(fake)

	out, err := c.Analyze(context.Background(), provider.Request{Text: "Note: 1"})
	require.NoError(t, err)
	assert.Equal(t, "1", out.Summary.Grade)
	assert.Equal(t, 2, fake.calls)
}

func TestAnalyzeGivesUpAfterRetries(t *testing.T) {
	fake := &fakeGenerator{errs: []error{
		errors.New("overloaded"), errors.New("overloaded"), errors.New("overloaded"),
	}}
	c := testClient(fake)

	_, err := c.Analyze(context.Background(), provider.Request{Text: "Note: 4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, 3, fake.calls)
}

func TestAnalyzeProseResponseFails(t *testing.T) {
	fake := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		textResponse("I could not read the test sheet, sorry."),
		textResponse("Still no JSON here."),
		textResponse("Nor here."),
	}}
	c := testClient(fake)

	// The decoder fails hard on non-JSON; no retries for malformed answers.
	_, err := c.Analyze(context.Background(), provider.Request{Text: "blurry"})
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestAnalyzeEmptyKey(t *testing.T) {
	c := NewClient("", "", slog.Default())
	_, err := c.Analyze(context.Background(), provider.Request{})
	require.Error(t, err)
}
