// analyze runs the full analysis pipeline on a single photo without a
// server or Postgres: OCR cascade, evidence extraction, provider fan-out,
// merge. The merged result is printed as JSON and recorded in a local
// sqlite history file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/analysis"
	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/evidence"
	"github.com/lernblick/lernblick/internal/provider"
	"github.com/lernblick/lernblick/internal/provider/anthropic"
	"github.com/lernblick/lernblick/internal/provider/gemini"
	"github.com/lernblick/lernblick/internal/provider/openai"
	repo "github.com/lernblick/lernblick/internal/repository"
	"github.com/lernblick/lernblick/internal/textextract"
)

func main() {
	var (
		imagePath   = flag.String("image", "", "path to the test photo (jpg/png)")
		childName   = flag.String("child", "", "child name for the report")
		gradeLevel  = flag.String("grade-level", "", `school year, e.g. "3. Klasse"`)
		lang        = flag.String("lang", "de", "report language")
		historyPath = flag.String("history", "", "sqlite history file (default: SQLITE_PATH, none if unset)")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -image <photo.jpg> [-child NAME] [-grade-level \"3. Klasse\"]")
		os.Exit(2)
	}
	ext := constants.NormalizeExt(filepath.Ext(*imagePath))
	if !constants.IsAllowedExt(ext) {
		fmt.Fprintf(os.Stderr, "unsupported file type %q: only JPEG and PNG photos are supported\n", ext)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if *historyPath == "" {
		*historyPath = cfg.Database.SQLitePath
	}
	if len(cfg.Providers.EnabledProviders()) == 0 {
		fmt.Fprintln(os.Stderr, "no analysis providers enabled: set at least one of OPENAI_ENABLED, GEMINI_ENABLED, ANTHROPIC_ENABLED")
		os.Exit(2)
	}

	img, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read image: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	tessEngine := textextract.NewTesseractEngine(textextract.TesseractConfig{
		Languages:          cfg.OCR.Languages,
		TerminationTimeout: cfg.OCR.TerminationTimeout,
	}, logger)

	var primary textextract.Engine = tessEngine
	if cfg.OCR.VisionAPIKey != "" {
		primary = textextract.NewVisionEngine(textextract.VisionConfig{
			APIKey:    cfg.OCR.VisionAPIKey,
			Languages: cfg.OCR.Languages,
		}, logger)
	}
	resolver := textextract.NewResolver(primary, tessEngine, textextract.ResolverConfig{
		FallbackThreshold: cfg.OCR.FallbackThreshold,
		FallbackTimeout:   cfg.OCR.FallbackTimeout,
	}, logger)

	extractor := evidence.NewExtractor(evidence.Config{
		CropTimeout: cfg.OCR.CropTimeout,
	}, evidence.ReaderFunc(tessEngine.RecognizeCrop), logger)

	start := time.Now()
	ev := extractor.Extract(ctx, img)
	res, err := resolver.Resolve(ctx, img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "text extraction failed: %v\n", err)
		os.Exit(1)
	}

	providers := buildProviders(cfg.Providers, logger)
	orchestrator := analysis.NewOrchestrator(providers, cfg.Providers.Timeout, logger)
	results, err := orchestrator.Run(ctx, provider.Request{
		Text:     res.Text,
		Evidence: &ev,
		Profile: provider.StudentProfile{
			Name:       *childName,
			GradeLevel: *gradeLevel,
		},
		TargetLanguage: *lang,
		OCRConfidence:  res.Confidence,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	merged := analysis.Merge(analysis.MergeInput{
		Results:       results,
		Attempted:     len(results),
		OCRConfidence: res.Confidence,
		RawText:       res.Text,
		Evidence:      &ev,
		Elapsed:       time.Since(start),
	}, cfg.Analysis)

	if *historyPath != "" {
		if hist, herr := repo.OpenHistory(*historyPath); herr == nil {
			if rerr := hist.Record(ctx, *imagePath, &merged); rerr != nil {
				logger.Warn("history record failed", "error", rerr)
			}
			_ = hist.Close()
		} else {
			logger.Warn("history unavailable", "error", herr)
		}
	}

	out, err := json.MarshalIndent(&merged, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	fmt.Fprintf(os.Stderr, "grade=%s agreement=%s consensus=%d%% providers=%s engine=%s elapsed=%s\n",
		merged.Summary.Grade,
		merged.Merge.GradeAgreement,
		merged.Merge.ConsensusScore,
		strings.Join(merged.Merge.Providers, ","),
		res.Engine,
		time.Since(start).Round(time.Millisecond),
	)
}

func buildProviders(cfg common.ProvidersConfig, logger *slog.Logger) []provider.Analyzer {
	var out []provider.Analyzer
	if cfg.OpenAIEnabled {
		out = append(out, openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		}, logger))
	}
	if cfg.GeminiEnabled {
		out = append(out, gemini.NewClient(cfg.GeminiKey, cfg.GeminiModel, logger))
	}
	if cfg.AnthropicEnabled {
		out = append(out, anthropic.NewClient(cfg.AnthropicKey, cfg.AnthropicModel, logger))
	}
	return out
}
