package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lernblick/lernblick/constants"
	"github.com/lernblick/lernblick/internal/common"
)

// Upload joins the uploaded file with the child profile it belongs to.
type Upload struct {
	ID             uuid.UUID
	SourcePath     string
	Filename       string
	FileExt        string
	Status         constants.UploadStatus
	UploadedAt     time.Time
	ChildName      string
	GradeLevel     string
	TargetLanguage string
}

type UploadRepository interface {
	FetchUpload(ctx context.Context, id uuid.UUID) (*Upload, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.UploadStatus, errorMessage string) error
	ClaimPending(ctx context.Context, limit int32) ([]uuid.UUID, error)
}

type uploadRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewUploadRepository(pool *pgxpool.Pool, logger *slog.Logger) UploadRepository {
	return &uploadRepo{pool: pool, logger: logger}
}

func (r *uploadRepo) FetchUpload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	const q = `
		SELECT u.id, u.source_path, u.filename, u.file_ext, u.status, u.uploaded_at,
		       c.name, COALESCE(c.grade_level, ''), c.target_language
		FROM uploads u
		JOIN children c ON c.id = u.child_id
		WHERE u.id = $1`

	var up Upload
	var status string
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&up.ID, &up.SourcePath, &up.Filename, &up.FileExt, &status, &up.UploadedAt,
		&up.ChildName, &up.GradeLevel, &up.TargetLanguage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "upload not found", common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to fetch upload", "upload_id", id, "error", err)
		return nil, common.NewAppError("DB_ERROR", "fetch upload", common.ErrDatabase)
	}
	up.Status = constants.UploadStatus(status)
	return &up, nil
}

func (r *uploadRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.UploadStatus, errorMessage string) error {
	const q = `UPDATE uploads SET status = $2, error_message = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, string(status), errorMessage)
	if err != nil {
		r.logger.Error("failed to update upload status", "upload_id", id, "status", status, "error", err)
		return common.NewAppError("DB_ERROR", "update upload status", common.ErrDatabase)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("NOT_FOUND", "upload not found", common.ErrNotFound)
	}
	return nil
}

// ClaimPending atomically moves up to limit uploaded rows to processing and
// returns their IDs. SKIP LOCKED keeps concurrent pollers from claiming the
// same upload twice.
func (r *uploadRepo) ClaimPending(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	const q = `
		UPDATE uploads SET status = $1
		WHERE id IN (
			SELECT id FROM uploads
			WHERE status = $2
			ORDER BY uploaded_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`

	rows, err := r.pool.Query(ctx, q,
		string(constants.StatusProcessing), string(constants.StatusUploaded), limit)
	if err != nil {
		r.logger.Error("failed to claim pending uploads", "error", err)
		return nil, common.NewAppError("DB_ERROR", "claim pending uploads", common.ErrDatabase)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, common.WrapError(err, "scan claimed upload id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
