package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/ludo-technologies/fixeval/domain"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	repository    TEXT NOT NULL,
	pr_number     TEXT NOT NULL DEFAULT '',
	artifact_path TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	stage         TEXT NOT NULL DEFAULT '',
	overall_score REAL,
	grade         TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	report_paths  TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_repository ON runs(repository, finished_at);
`

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Repository string
	Limit      int
}

// HistoryStore keeps one row per evaluation run in a SQLite file
type HistoryStore struct {
	db *sqlx.DB
}

// OpenHistoryStore opens (and creates when needed) the history database at path.
// ":memory:" opens a private in-memory database.
func OpenHistoryStore(ctx context.Context, path string) (*HistoryStore, error) {
	if path == "" {
		return nil, domain.NewInvalidInputError("history path is empty", nil)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Record inserts a run, replacing any earlier row with the same run ID
func (s *HistoryStore) Record(ctx context.Context, rec domain.RunRecord) error {
	if rec.RunID == "" {
		return domain.NewInvalidInputError("run record has no run id", nil)
	}
	rec.StartedAt = rec.StartedAt.UTC()
	rec.FinishedAt = rec.FinishedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	run_id, repository, pr_number, artifact_path, outcome, stage,
	overall_score, grade, error_message, report_paths, started_at, finished_at
) VALUES (
	:run_id, :repository, :pr_number, :artifact_path, :outcome, :stage,
	:overall_score, :grade, :error_message, :report_paths, :started_at, :finished_at
)`, rec)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	return nil
}

// List returns runs, newest first
func (s *HistoryStore) List(ctx context.Context, filter HistoryFilter) ([]domain.RunRecord, error) {
	query := `SELECT run_id, repository, pr_number, artifact_path, outcome, stage,
	overall_score, grade, error_message, report_paths, started_at, finished_at FROM runs`
	var args []any
	if filter.Repository != "" {
		query += " WHERE repository = ?"
		args = append(args, filter.Repository)
	}
	query += " ORDER BY finished_at DESC, run_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	records := []domain.RunRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// Close closes the database
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// JoinReportPaths flattens written report paths for storage
func JoinReportPaths(paths []string) string {
	return strings.Join(paths, "\n")
}

// SplitReportPaths reverses JoinReportPaths
func SplitReportPaths(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, "\n")
}
