package textextract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeEngine struct {
	name   string
	res    Result
	err    error
	called bool
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Extract(_ context.Context, _ []byte) (Result, error) {
	f.called = true
	if f.err != nil {
		return Result{}, f.err
	}
	return f.res, nil
}

func TestResolveConfidentPrimarySkipsFallback(t *testing.T) {
	primary := &fakeEngine{name: "cloud", res: Result{Text: "Aufgabe 1: 3+4=7", Confidence: 0.95}}
	fallback := &fakeEngine{name: "local", res: Result{Text: "noise", Confidence: 0.5}}
	r := NewResolver(primary, fallback, ResolverConfig{}, nil)

	got, err := r.Resolve(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if fallback.called {
		t.Fatal("fallback must not run when primary confidence is 0.95")
	}
	if got.Engine != "cloud" || got.UsedFallback {
		t.Fatalf("unexpected resolution: %+v", got)
	}
}

func TestResolveWeakPrimaryInvokesFallback(t *testing.T) {
	primary := &fakeEngine{name: "cloud", res: Result{Text: "Aufg", Confidence: 0.70}}
	fallback := &fakeEngine{name: "local", res: Result{Text: "Aufgabe 1", Confidence: 0.72}}
	r := NewResolver(primary, fallback, ResolverConfig{}, nil)

	got, err := r.Resolve(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !fallback.called {
		t.Fatal("fallback must run when primary confidence is 0.70")
	}
	if !got.UsedFallback {
		t.Fatal("resolution should record fallback use")
	}
}

func TestResolveEmptyPrimaryInvokesFallback(t *testing.T) {
	primary := &fakeEngine{name: "cloud", res: Result{Text: "", Confidence: 0.99}}
	fallback := &fakeEngine{name: "local", res: Result{Text: "Diktat", Confidence: 0.6}}
	r := NewResolver(primary, fallback, ResolverConfig{}, nil)

	got, err := r.Resolve(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !fallback.called {
		t.Fatal("empty primary text must trigger the fallback")
	}
	if got.Text != "Diktat" {
		t.Fatalf("text = %q, want fallback text", got.Text)
	}
}

func TestResolveBothFailSurfacesCombinedError(t *testing.T) {
	primary := &fakeEngine{name: "cloud", err: errors.New("quota exceeded")}
	fallback := &fakeEngine{name: "local", err: errors.New("binary missing")}
	r := NewResolver(primary, fallback, ResolverConfig{}, nil)

	_, err := r.Resolve(context.Background(), []byte("img"))
	if err == nil {
		t.Fatal("expected error when every engine fails")
	}
	for _, want := range []string{"cloud", "quota exceeded", "local", "binary missing"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("combined error %q should mention %q", err, want)
		}
	}
}

func TestPickBest(t *testing.T) {
	cfg := ResolverConfig{FallbackThreshold: 0.85, OutrightThreshold: 0.90, TieWindow: 0.10}
	long := strings.Repeat("Aufgabe 1: richtig gelöst. ", 10)

	cases := []struct {
		name  string
		cands []candidate
		want  string
	}{
		{
			name:  "single candidate wins",
			cands: []candidate{{res: Result{Text: "x", Confidence: 0.2}, engine: "only"}},
			want:  "only",
		},
		{
			name: "outright threshold wins despite shorter text",
			cands: []candidate{
				{res: Result{Text: "short", Confidence: 0.92}, engine: "a"},
				{res: Result{Text: long, Confidence: 0.88}, engine: "b"},
			},
			want: "a",
		},
		{
			// Longer output as a completeness proxy is a heuristic, not a
			// guarantee; this pins the documented tie-break behavior.
			name: "near tie prefers longer text",
			cands: []candidate{
				{res: Result{Text: "kurz", Confidence: 0.80}, engine: "a"},
				{res: Result{Text: long, Confidence: 0.74}, engine: "b"},
			},
			want: "b",
		},
		{
			name: "clear gap prefers higher confidence",
			cands: []candidate{
				{res: Result{Text: "kurz", Confidence: 0.85}, engine: "a"},
				{res: Result{Text: long, Confidence: 0.60}, engine: "b"},
			},
			want: "a",
		},
		{
			name: "order of candidates does not matter",
			cands: []candidate{
				{res: Result{Text: long, Confidence: 0.74}, engine: "b"},
				{res: Result{Text: "kurz", Confidence: 0.80}, engine: "a"},
			},
			want: "b",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pickBest(tc.cands, cfg)
			if got.engine != tc.want {
				t.Fatalf("pickBest() = %s, want %s", got.engine, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := "Aufgabe 1\r\n\r\n\r\n\r\nName:\tMia   Muster  \n-----\nEnde "
	got := Normalize(in)
	if strings.Contains(got, "\r") || strings.Contains(got, "\t") {
		t.Fatalf("normalize left control characters: %q", got)
	}
	if strings.Contains(got, "-----") {
		t.Fatalf("normalize should drop line-rule noise: %q", got)
	}
	if strings.Contains(got, "   ") {
		t.Fatalf("normalize should collapse runs of spaces: %q", got)
	}
}
