package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lernblick/lernblick/internal/analysis"
	"github.com/lernblick/lernblick/internal/common"
)

// AssessmentRow is the flattened per-upload view used by exports.
type AssessmentRow struct {
	UploadID       uuid.UUID
	ChildName      string
	Filename       string
	Subject        string
	Grade          string
	GradeAgreement string
	ConsensusScore int
	OCRConfidence  float32
	Providers      []string
	CreatedAt      time.Time
}

type ResultRepository interface {
	SaveAnalysisResult(ctx context.Context, uploadID uuid.UUID, merged *analysis.MergedAnalysis, extractedText string) error
	ListAssessments(ctx context.Context, childID uuid.UUID) ([]AssessmentRow, error)
}

type resultRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewResultRepository(pool *pgxpool.Pool, logger *slog.Logger) ResultRepository {
	return &resultRepo{pool: pool, logger: logger}
}

func (r *resultRepo) SaveAnalysisResult(ctx context.Context, uploadID uuid.UUID, merged *analysis.MergedAnalysis, extractedText string) error {
	payload, err := json.Marshal(merged)
	if err != nil {
		return common.WrapError(err, "marshal merged analysis")
	}

	const q = `
		INSERT INTO analysis_results
			(id, upload_id, merged, extracted_text, ocr_confidence, grade, grade_agreement, consensus_score, providers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (upload_id) DO UPDATE SET
			merged = EXCLUDED.merged,
			extracted_text = EXCLUDED.extracted_text,
			ocr_confidence = EXCLUDED.ocr_confidence,
			grade = EXCLUDED.grade,
			grade_agreement = EXCLUDED.grade_agreement,
			consensus_score = EXCLUDED.consensus_score,
			providers = EXCLUDED.providers,
			created_at = EXCLUDED.created_at`

	_, err = r.pool.Exec(ctx, q,
		uuid.New(), uploadID, payload, extractedText,
		merged.Merge.OCRConfidence,
		merged.Summary.Grade,
		string(merged.Merge.GradeAgreement),
		merged.Merge.ConsensusScore,
		merged.Merge.Providers,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to save analysis result", "upload_id", uploadID, "error", err)
		return common.NewAppError("DB_ERROR", "save analysis result", common.ErrDatabase)
	}
	return nil
}

func (r *resultRepo) ListAssessments(ctx context.Context, childID uuid.UUID) ([]AssessmentRow, error) {
	const q = `
		SELECT u.id, c.name, u.filename,
		       COALESCE(ar.merged->'summary'->>'subject', ''),
		       COALESCE(ar.grade, ''), ar.grade_agreement, ar.consensus_score,
		       COALESCE(ar.ocr_confidence, 0), COALESCE(ar.providers, '{}'), ar.created_at
		FROM analysis_results ar
		JOIN uploads u ON u.id = ar.upload_id
		JOIN children c ON c.id = u.child_id
		WHERE ($1::uuid IS NULL OR c.id = $1)
		ORDER BY ar.created_at DESC`

	var arg any
	if childID != uuid.Nil {
		arg = childID
	}
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		r.logger.Error("failed to list assessments", "error", err)
		return nil, common.NewAppError("DB_ERROR", "list assessments", common.ErrDatabase)
	}
	defer rows.Close()

	var out []AssessmentRow
	for rows.Next() {
		var row AssessmentRow
		if err := rows.Scan(
			&row.UploadID, &row.ChildName, &row.Filename, &row.Subject,
			&row.Grade, &row.GradeAgreement, &row.ConsensusScore,
			&row.OCRConfidence, &row.Providers, &row.CreatedAt,
		); err != nil {
			return nil, common.WrapError(err, "scan assessment row")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
