package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernblick/lernblick/internal/provider"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestAnalyzeValidResponse(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "json_object", body["response_format"].(map[string]any)["type"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse(`{
			"summary": {"grade": "2", "subject": "Mathematik", "confidence": 0.8},
			"strengths": ["Einmaleins sicher"],
			"weaknesses": ["Textaufgaben"],
			"recommendations": [{"priority": "high", "action": "Textaufgaben üben"}]
		}`)))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"}, nil)
	out, err := c.Analyze(context.Background(), provider.Request{Text: "Klassenarbeit", TargetLanguage: "de"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "2", out.Summary.Grade)
	assert.Equal(t, "openai", out.Metadata.Provider)
	assert.Len(t, out.Strengths, 1)
}

func TestAnalyzeLegacyShapeFallsBackToLenient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatResponse("```json\n{\"overall_grade\": \"4\", \"positives\": [\"ordentliche Schrift\"]}\n```")))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"}, nil)
	out, err := c.Analyze(context.Background(), provider.Request{Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, "4", out.Summary.Grade)
	assert.NotNil(t, out.Recommendations)
}

func TestAnalyzeProseResponseIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatResponse("Sorry, I cannot read this image.")))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"}, nil)
	_, err := c.Analyze(context.Background(), provider.Request{Text: "t"})
	assert.Error(t, err)
}

func TestAnalyzeNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"}, nil)
	_, err := c.Analyze(context.Background(), provider.Request{Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
