package evidence

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"
	"unicode/utf8"
)

// testImage renders a white sheet with optional red and blue boxes.
func testImage(t *testing.T, w, h int, red, blue []image.Rectangle) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	for _, r := range red {
		draw.Draw(img, r, &image.Uniform{C: color.RGBA{R: 220, G: 30, B: 30, A: 255}}, image.Point{}, draw.Src)
	}
	for _, r := range blue {
		draw.Draw(img, r, &image.Uniform{C: color.RGBA{R: 30, G: 40, B: 200, A: 255}}, image.Point{}, draw.Src)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestExtractMalformedImage(t *testing.T) {
	e := NewExtractor(Config{}, nil, nil)
	ev := e.Extract(context.Background(), []byte("not an image"))

	if ev.Confidence >= 0.3 {
		t.Fatalf("malformed image should be low confidence, got %v", ev.Confidence)
	}
	if ev.DetectedGrade != nil || ev.Points != nil || ev.TeacherComment != nil {
		t.Fatalf("malformed image should yield an empty record: %+v", ev)
	}
	if ev.MarkSymbols == nil || ev.AnswerRegions == nil {
		t.Fatal("lists must be non-nil even on failure")
	}
}

func TestExtractCleanSheetHasNoCorrections(t *testing.T) {
	e := NewExtractor(Config{}, nil, nil)
	ev := e.Extract(context.Background(), testImage(t, 400, 500, nil, nil))

	if ev.CorrectionDensity != 0 {
		t.Fatalf("clean sheet density = %v, want 0", ev.CorrectionDensity)
	}
	if len(ev.AnswerRegions) != 0 {
		t.Fatalf("clean sheet regions = %d, want 0", len(ev.AnswerRegions))
	}
}

func TestExtractRedMarksRaiseDensityAndRegions(t *testing.T) {
	red := []image.Rectangle{image.Rect(50, 100, 150, 180), image.Rect(200, 300, 320, 380)}
	blue := []image.Rectangle{image.Rect(40, 420, 360, 460)}
	e := NewExtractor(Config{}, nil, nil)
	ev := e.Extract(context.Background(), testImage(t, 400, 500, red, blue))

	if ev.CorrectionDensity <= 0 {
		t.Fatal("expected positive correction density")
	}
	if len(ev.AnswerRegions) == 0 {
		t.Fatal("expected answer regions for inked cells")
	}
	clean := NewExtractor(Config{}, nil, nil).Extract(context.Background(), testImage(t, 400, 500, nil, nil))
	if ev.Confidence <= clean.Confidence {
		t.Fatalf("density should boost confidence: marked=%v clean=%v", ev.Confidence, clean.Confidence)
	}
	if ev.Confidence >= 1.0 {
		t.Fatalf("confidence must stay below 1.0, got %v", ev.Confidence)
	}
}

func TestExtractDownsamplesLargeImages(t *testing.T) {
	// A wide image must still be scanned without error after downsampling.
	e := NewExtractor(Config{MaxWidth: 200}, nil, nil)
	ev := e.Extract(context.Background(), testImage(t, 1600, 1200, []image.Rectangle{image.Rect(0, 0, 800, 600)}, nil))
	if ev.CorrectionDensity <= 0.1 {
		t.Fatalf("density should survive downsampling, got %v", ev.CorrectionDensity)
	}
}

type stubReader struct {
	byRegion []string
	calls    int
	err      error
}

func (s *stubReader) Recognize(_ context.Context, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.byRegion) {
		return "", nil
	}
	out := s.byRegion[s.calls]
	s.calls++
	return out, nil
}

func TestExtractCropsParseGradePointsAndComment(t *testing.T) {
	// Crop order: top-right corner, top half, bottom quarter.
	reader := &stubReader{byRegion: []string{
		"Note: 2 ✓",
		"Diktat  12/15 Punkte",
		"Weiter so, gut aufgepasst!",
	}}
	e := NewExtractor(Config{}, reader, nil)
	ev := e.Extract(context.Background(), testImage(t, 400, 500, nil, nil))

	if ev.DetectedGrade == nil || *ev.DetectedGrade != 2 {
		t.Fatalf("grade = %v, want 2", ev.DetectedGrade)
	}
	if ev.Points == nil || *ev.Points != "12/15" {
		t.Fatalf("points = %v, want 12/15", ev.Points)
	}
	if ev.TeacherComment == nil || *ev.TeacherComment == "" {
		t.Fatal("expected a teacher comment snippet")
	}
	if len(ev.MarkSymbols) == 0 {
		t.Fatal("expected mark symbols from crop text")
	}
}

func TestExtractCropFailureLeavesFieldsEmpty(t *testing.T) {
	e := NewExtractor(Config{}, &stubReader{err: errors.New("ocr down")}, nil)
	ev := e.Extract(context.Background(), testImage(t, 400, 500, nil, nil))

	if ev.DetectedGrade != nil || ev.Points != nil || ev.TeacherComment != nil {
		t.Fatalf("crop failure must not populate fields: %+v", ev)
	}
}

func TestCommentSnippetTruncatesOnRuneBoundary(t *testing.T) {
	// An umlaut straddling the length cap must not be split mid-rune.
	long := strings.Repeat("a", 159) + "äußerst schön geschrieben, weiter so"
	got := commentSnippet(long)

	if len(got) > 160 {
		t.Fatalf("snippet length = %d, want <= 160", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("snippet is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "a") {
		t.Fatalf("expected the partial umlaut to be dropped, got suffix %q", got[len(got)-3:])
	}

	short := commentSnippet("  Gut   gemacht!  ")
	if short != "Gut gemacht!" {
		t.Fatalf("whitespace collapse = %q", short)
	}
}

func TestParseGrade(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
		ok   bool
	}{
		{"note colon", "Note: 3", 3, true},
		{"note equals", "NOTE = 1", 1, true},
		{"note with modifier", "Note: 2+", 2, true},
		{"bare circled digit", " (4) ", 4, true},
		{"bare digit line", "\n2-\n", 2, true},
		{"out of range", "Note: 7", 0, false},
		{"no grade", "Sehr ordentlich", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseGrade(tc.in)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Fatalf("parseGrade(%q) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}
