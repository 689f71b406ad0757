package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lernblick/lernblick/internal/analysis"
	"github.com/lernblick/lernblick/internal/common"
)

// HistoryStore keeps a local record of one-shot CLI analyses in a sqlite
// file, so repeated runs against the same photos can be compared without a
// Postgres instance.
type HistoryStore struct {
	db *sql.DB
}

func OpenHistory(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open history db")
	}
	const ddl = `
		CREATE TABLE IF NOT EXISTS analysis_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			image_path TEXT NOT NULL,
			grade TEXT,
			consensus_score INTEGER,
			merged_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, common.WrapError(err, "init history schema")
	}
	return &HistoryStore{db: db}, nil
}

func (h *HistoryStore) Close() error { return h.db.Close() }

func (h *HistoryStore) Record(ctx context.Context, imagePath string, merged *analysis.MergedAnalysis) error {
	payload, err := json.Marshal(merged)
	if err != nil {
		return common.WrapError(err, "marshal merged analysis")
	}
	const q = `
		INSERT INTO analysis_history (image_path, grade, consensus_score, merged_json, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err = h.db.ExecContext(ctx, q,
		imagePath,
		merged.Summary.Grade,
		merged.Merge.ConsensusScore,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	return common.WrapError(err, "record analysis history")
}

// HistoryEntry is one prior CLI run for an image.
type HistoryEntry struct {
	ImagePath      string
	Grade          string
	ConsensusScore int
	CreatedAt      time.Time
}

func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT image_path, COALESCE(grade, ''), COALESCE(consensus_score, 0), created_at
		FROM analysis_history ORDER BY id DESC LIMIT ?`
	rows, err := h.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, common.WrapError(err, "query analysis history")
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var created string
		if err := rows.Scan(&e.ImagePath, &e.Grade, &e.ConsensusScore, &created); err != nil {
			return nil, common.WrapError(err, "scan history row")
		}
		if t, perr := time.Parse(time.RFC3339, created); perr == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
