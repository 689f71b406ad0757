// Package export produces XLSX workbooks of completed assessments for
// parents who track progress outside the app.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/lernblick/lernblick/internal/repository"
)

// Service is a tiny façade over the result repository that renders XLSX bytes.
type Service struct {
	results repository.ResultRepository
	logger  *slog.Logger
}

func NewService(results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, logger: logger}
}

// ExportAssessmentsXLSX returns a workbook of all completed assessments.
// Pass uuid.Nil as childID to export across all children.
func (s *Service) ExportAssessmentsXLSX(ctx context.Context, childID uuid.UUID) ([]byte, error) {
	start := time.Now()

	rows, err := s.results.ListAssessments(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Assessments"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defaultIndex, _ := f.GetSheetIndex("Sheet1"); defaultIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Date",
		"Child",
		"Subject",
		"Grade",
		"Grade Agreement",
		"Consensus Score",
		"OCR Confidence",
		"Providers",
		"Photo",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		values := []any{
			r.CreatedAt.Format("2006-01-02"),
			r.ChildName,
			r.Subject,
			r.Grade,
			r.GradeAgreement,
			r.ConsensusScore,
			fmt.Sprintf("%.2f", r.OCRConfidence),
			strings.Join(r.Providers, ", "),
			r.Filename,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.assessments.done",
		"child_id", childID,
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
