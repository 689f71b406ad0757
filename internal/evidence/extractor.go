package evidence

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// Config holds the extraction tunables.
type Config struct {
	MaxWidth      int           // downsample bound, default 1000
	GridCols      int           // coarse grid, default 8
	GridRows      int           // default 10
	CellThreshold float32       // red+blue density flagging a grid cell, default 0.02
	CropTimeout   time.Duration // per-crop OCR budget, default 10s
}

// Extractor scans raw image bytes for correction-ink signals.
type Extractor struct {
	cfg    Config
	reader TextReader
	logger *slog.Logger
}

// NewExtractor builds an Extractor. reader may be nil, in which case the
// cropped micro-OCR fields stay empty.
func NewExtractor(cfg Config, reader TextReader, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1000
	}
	if cfg.GridCols <= 0 {
		cfg.GridCols = 8
	}
	if cfg.GridRows <= 0 {
		cfg.GridRows = 10
	}
	if cfg.CellThreshold <= 0 {
		cfg.CellThreshold = 0.02
	}
	if cfg.CropTimeout <= 0 {
		cfg.CropTimeout = 10 * time.Second
	}
	return &Extractor{cfg: cfg, reader: reader, logger: logger}
}

var (
	reGradeNote = regexp.MustCompile(`(?i)note\s*[:=]?\s*([1-6])(?:[+\-]|\b)`)
	reBareGrade = regexp.MustCompile(`^\s*\(?([1-6])[+\-]?\)?\s*$`)
	rePoints    = regexp.MustCompile(`(\d{1,3})\s*/\s*(\d{1,3})`)
)

const (
	baseConfidence    = float32(0.30)
	densityBoost      = float32(0.60)
	confidenceCeiling = float32(0.95)
)

// Extract scans one primary image. It never fails: malformed input or any
// internal error yields a low-confidence empty record instead.
func (e *Extractor) Extract(ctx context.Context, imageBytes []byte) Evidence {
	start := time.Now()
	ev := Evidence{MarkSymbols: []string{}, AnswerRegions: []Region{}}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		e.logger.Warn("evidence.decode_failed", "error", err, "bytes", len(imageBytes))
		ev.Confidence = 0.1
		return ev
	}

	small := downsample(img, e.cfg.MaxWidth)
	red, blue := inkRatios(small)
	ev.CorrectionDensity = clamp01(red + blue)

	ev.AnswerRegions = e.answerRegions(small)

	e.scanCrops(ctx, small, &ev)

	ev.Confidence = baseConfidence + densityBoost*ev.CorrectionDensity
	if ev.Confidence > confidenceCeiling {
		ev.Confidence = confidenceCeiling
	}

	e.logger.Info("evidence.ok",
		"correction_density", ev.CorrectionDensity,
		"answer_regions", len(ev.AnswerRegions),
		"grade_found", ev.DetectedGrade != nil,
		"points_found", ev.Points != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ev
}

// downsample scales the image to at most maxWidth pixels wide, preserving the
// aspect ratio. Pixel scans run on the small copy for speed.
func downsample(img image.Image, maxWidth int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
		return dst
	}
	scale := float64(maxWidth) / float64(w)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// isRedInk classifies a pixel as teacher red by channel dominance.
func isRedInk(r, g, b uint8) bool {
	return r > 120 && int(r) > int(g)+50 && int(r) > int(b)+50
}

// isBlueInk classifies a pixel as pen blue by channel dominance.
func isBlueInk(r, g, b uint8) bool {
	return b > 110 && int(b) > int(r)+40 && int(b) > int(g)+30
}

func inkRatios(img *image.RGBA) (red, blue float32) {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0, 0
	}
	var redCount, blueCount int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := row[x*4], row[x*4+1], row[x*4+2]
			if isRedInk(r, g, bl) {
				redCount++
			} else if isBlueInk(r, g, bl) {
				blueCount++
			}
		}
	}
	return float32(redCount) / float32(total), float32(blueCount) / float32(total)
}

// answerRegions partitions the image into a coarse grid, flags cells whose
// red/blue density exceeds the threshold, and merges adjacent flagged cells
// into larger rectangles.
func (e *Extractor) answerRegions(img *image.RGBA) []Region {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cols, rows := e.cfg.GridCols, e.cfg.GridRows
	cellW, cellH := w/cols, h/rows
	if cellW == 0 || cellH == 0 {
		return []Region{}
	}

	density := make([]float32, cols*rows)
	flagged := make([]bool, cols*rows)
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			var hits int
			for y := cy * cellH; y < (cy+1)*cellH; y++ {
				row := img.Pix[y*img.Stride:]
				for x := cx * cellW; x < (cx+1)*cellW; x++ {
					r, g, bl := row[x*4], row[x*4+1], row[x*4+2]
					if isRedInk(r, g, bl) || isBlueInk(r, g, bl) {
						hits++
					}
				}
			}
			d := float32(hits) / float32(cellW*cellH)
			density[cy*cols+cx] = d
			flagged[cy*cols+cx] = d >= e.cfg.CellThreshold
		}
	}

	// Flood-fill adjacent flagged cells into bounding rectangles.
	visited := make([]bool, cols*rows)
	var regions []Region
	for idx := range flagged {
		if !flagged[idx] || visited[idx] {
			continue
		}
		minX, minY := cols, rows
		maxX, maxY := -1, -1
		var sum float32
		var n int
		stack := []int{idx}
		visited[idx] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := cur%cols, cur/cols
			if cx < minX {
				minX = cx
			}
			if cy < minY {
				minY = cy
			}
			if cx > maxX {
				maxX = cx
			}
			if cy > maxY {
				maxY = cy
			}
			sum += density[cur]
			n++
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || nx >= cols || ny < 0 || ny >= rows {
					continue
				}
				ni := ny*cols + nx
				if flagged[ni] && !visited[ni] {
					visited[ni] = true
					stack = append(stack, ni)
				}
			}
		}
		regions = append(regions, Region{
			X:      minX * cellW,
			Y:      minY * cellH,
			Width:  (maxX - minX + 1) * cellW,
			Height: (maxY - minY + 1) * cellH,
			Score:  clamp01(sum / float32(n) * 4), // scale cell density into a 0..1 score
		})
	}
	if regions == nil {
		regions = []Region{}
	}
	return regions
}

// scanCrops runs micro-OCR on the corners where German teachers write the
// grade, the points tally, and the closing comment. A timeout or OCR failure
// on a crop yields an empty field, never an aborted extraction.
func (e *Extractor) scanCrops(ctx context.Context, img *image.RGBA, ev *Evidence) {
	if e.reader == nil {
		return
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// Top-right corner: grade ("Note: 2" or a bare circled digit).
	corner := e.cropText(ctx, img, image.Rect(w*6/10, 0, w, h/5))
	if g, ok := parseGrade(corner); ok {
		ev.DetectedGrade = &g
	}
	ev.MarkSymbols = append(ev.MarkSymbols, markSymbols(corner)...)

	// Top half: points tally "n/m".
	top := e.cropText(ctx, img, image.Rect(0, 0, w, h/2))
	if m := rePoints.FindStringSubmatch(top); m != nil {
		p := m[1] + "/" + m[2]
		ev.Points = &p
	}
	ev.MarkSymbols = append(ev.MarkSymbols, markSymbols(top)...)

	// Bottom quarter: teacher-comment snippet.
	bottom := e.cropText(ctx, img, image.Rect(0, h*3/4, w, h))
	if c := commentSnippet(bottom); c != "" {
		ev.TeacherComment = &c
	}

	ev.MarkSymbols = dedupe(ev.MarkSymbols)
}

// cropText encodes a sub-rectangle as PNG and OCRs it under its own timeout.
func (e *Extractor) cropText(ctx context.Context, img *image.RGBA, rect image.Rectangle) string {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return ""
	}
	crop := img.SubImage(rect)
	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.CropTimeout)
	defer cancel()
	txt, err := e.reader.Recognize(cctx, buf.Bytes())
	if err != nil {
		e.logger.Debug("evidence.crop_ocr_failed", "rect", fmt.Sprint(rect), "error", err)
		return ""
	}
	return txt
}

func parseGrade(txt string) (int, bool) {
	if m := reGradeNote.FindStringSubmatch(txt); m != nil {
		g, err := strconv.Atoi(m[1])
		return g, err == nil
	}
	for _, line := range strings.Split(txt, "\n") {
		if m := reBareGrade.FindStringSubmatch(line); m != nil {
			g, err := strconv.Atoi(m[1])
			return g, err == nil
		}
	}
	return 0, false
}

func markSymbols(txt string) []string {
	var out []string
	for _, r := range txt {
		switch r {
		case '✓', '✔', '✗', '✘', '×':
			out = append(out, string(r))
		}
	}
	return out
}

func commentSnippet(txt string) string {
	s := strings.TrimSpace(strings.Join(strings.Fields(txt), " "))
	if len(s) < 4 {
		return ""
	}
	if len(s) > 160 {
		cut := 160
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func clamp01(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
