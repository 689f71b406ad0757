// Package pipeline coordinates one upload end to end: evidence extraction
// and text resolution run in parallel, then every enabled provider is
// consulted and the outcomes merged into one persisted record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/analysis"
	"github.com/lernblick/lernblick/internal/common"
	"github.com/lernblick/lernblick/internal/evidence"
	"github.com/lernblick/lernblick/internal/provider"
	"github.com/lernblick/lernblick/internal/repository"
	"github.com/lernblick/lernblick/internal/textextract"
)

// EvidenceExtractor is the pixel-analysis stage.
type EvidenceExtractor interface {
	Extract(ctx context.Context, imageBytes []byte) evidence.Evidence
}

// TextResolver is the cascading OCR stage.
type TextResolver interface {
	Resolve(ctx context.Context, image []byte) (textextract.Resolution, error)
}

// Runner fans a request out to the analysis providers.
type Runner interface {
	Run(ctx context.Context, req provider.Request) ([]analysis.ProviderResult, error)
}

// Processor coordinates evidence + OCR, then provider fan-out, then merge.
type Processor struct {
	logger    *slog.Logger
	evidence  EvidenceExtractor
	text      TextResolver
	runner    Runner
	uploads   repository.UploadRepository
	results   repository.ResultRepository
	analysis  common.AnalysisConfig
	readImage func(path string) ([]byte, error)
}

func NewProcessor(
	logger *slog.Logger,
	ev EvidenceExtractor,
	text TextResolver,
	runner Runner,
	uploads repository.UploadRepository,
	results repository.ResultRepository,
	cfg common.AnalysisConfig,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		evidence:  ev,
		text:      text,
		runner:    runner,
		uploads:   uploads,
		results:   results,
		analysis:  cfg,
		readImage: os.ReadFile,
	}
}

// ProcessUpload runs the full analysis for one upload. An upload is marked
// completed only after the merged result is persisted; every terminal
// failure path marks it failed with a human-readable message.
func (p *Processor) ProcessUpload(ctx context.Context, uploadID uuid.UUID) (*analysis.MergedAnalysis, error) {
	start := time.Now()

	up, err := p.uploads.FetchUpload(ctx, uploadID)
	if err != nil {
		p.logger.Error("pipeline.fetch.failed", "upload_id", uploadID, "error", err)
		return nil, err
	}
	if !constants.IsAllowedExt(up.FileExt) {
		msg := fmt.Sprintf("unsupported file type %q: only JPEG and PNG photos are supported", up.FileExt)
		return nil, p.fail(ctx, uploadID, msg, common.NewAppError("INVALID_INPUT", msg, common.ErrInvalidInput))
	}

	if err := p.uploads.UpdateStatus(ctx, uploadID, constants.StatusProcessing, ""); err != nil {
		return nil, err
	}

	img, err := p.readImage(up.SourcePath)
	if err != nil {
		return nil, p.fail(ctx, uploadID, "uploaded image could not be read", err)
	}

	// Pixel evidence and OCR have no data dependency; run them in parallel.
	type textOut struct {
		res textextract.Resolution
		err error
	}
	textCh := make(chan textOut, 1)
	go func() {
		res, terr := p.text.Resolve(ctx, img)
		textCh <- textOut{res: res, err: terr}
	}()

	ev := p.evidence.Extract(ctx, img)
	text := <-textCh
	if text.err != nil {
		return nil, p.fail(ctx, uploadID,
			"text could not be read from the image: please retake the photo in better light", text.err)
	}

	p.logger.Info("pipeline.inputs.ready",
		"upload_id", uploadID,
		"ocr_engine", text.res.Engine,
		"ocr_confidence", text.res.Confidence,
		"ocr_fallback", text.res.UsedFallback,
		"correction_density", ev.CorrectionDensity,
	)

	req := provider.Request{
		Text:     text.res.Text,
		Evidence: &ev,
		Profile: provider.StudentProfile{
			Name:       up.ChildName,
			GradeLevel: up.GradeLevel,
		},
		TargetLanguage: up.TargetLanguage,
		OCRConfidence:  text.res.Confidence,
	}

	results, err := p.runner.Run(ctx, req)
	if err != nil {
		return nil, p.fail(ctx, uploadID, failureMessage(err), err)
	}

	merged := analysis.Merge(analysis.MergeInput{
		Results:       results,
		Attempted:     len(results),
		OCRConfidence: text.res.Confidence,
		RawText:       text.res.Text,
		Evidence:      &ev,
		Elapsed:       time.Since(start),
	}, p.analysis)

	if err := p.results.SaveAnalysisResult(ctx, uploadID, &merged, text.res.Text); err != nil {
		return nil, p.fail(ctx, uploadID, "analysis finished but the result could not be saved", err)
	}
	if err := p.uploads.UpdateStatus(ctx, uploadID, constants.StatusCompleted, ""); err != nil {
		return nil, err
	}

	p.logger.Info("pipeline.completed",
		"upload_id", uploadID,
		"grade", merged.Summary.Grade,
		"agreement", merged.Merge.GradeAgreement,
		"consensus_score", merged.Merge.ConsensusScore,
		"providers", merged.Merge.Providers,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &merged, nil
}

// fail marks the upload failed with a message parents can act on, then
// returns the original error.
func (p *Processor) fail(ctx context.Context, uploadID uuid.UUID, msg string, cause error) error {
	p.logger.Error("pipeline.failed", "upload_id", uploadID, "message", msg, "error", cause)
	if uerr := p.uploads.UpdateStatus(ctx, uploadID, constants.StatusFailed, msg); uerr != nil {
		p.logger.Error("pipeline.status.failed", "upload_id", uploadID, "error", uerr)
	}
	return cause
}

func failureMessage(err error) string {
	var allFailed *analysis.AllFailedError
	if errors.As(err, &allFailed) {
		if allTimeouts(allFailed) {
			return "Analysis timeout - please try again with a clearer image"
		}
		return "All AI providers failed: " + err.Error()
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code == "CONFIG_ERROR" {
		return appErr.Message
	}
	return "analysis failed: " + err.Error()
}

func allTimeouts(e *analysis.AllFailedError) bool {
	if len(e.Reasons) == 0 {
		return false
	}
	for _, reason := range e.Reasons {
		if !errors.Is(reason, context.DeadlineExceeded) {
			return false
		}
	}
	return true
}
