package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pbx/internal/dbx"
	"github.com/google/uuid"
)

// Repository stores runs and their uploads.
type Repository interface {
	// CreateRun inserts run, assigning an ID and start time when missing.
	CreateRun(ctx context.Context, run *Run) error

	// FinishRun stores the final counters of a run.
	FinishRun(ctx context.Context, id string, finished time.Time, total, failed int) error

	RecordUpload(ctx context.Context, u *Upload) error

	// IsUploaded reports whether path was ever uploaded successfully to target.
	IsUploaded(ctx context.Context, target, path string) (bool, error)

	// ListRuns returns the most recent runs first. limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Uploads returns the uploads of a run in insertion order.
	Uploads(ctx context.Context, runID string) ([]Upload, error)
}

// SQLiteRepository implements Repository over a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	query := `INSERT INTO runs (id, started_at, target, pattern, total) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, run.ID, toMillis(run.StartedAt), run.Target, run.Pattern, run.Total)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FinishRun(ctx context.Context, id string, finished time.Time, total, failed int) error {
	query := `UPDATE runs SET finished_at=?, total=?, failed=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, query, toMillis(finished), total, failed, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *SQLiteRepository) RecordUpload(ctx context.Context, u *Upload) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	query := `INSERT INTO uploads (run_id, request_id, path, target, ok, status, attempts, error, not_attempted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		u.RunID, u.RequestID, u.Path, u.Target, u.OK, u.Status, u.Attempts, u.Error, u.NotAttempted, toMillis(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) IsUploaded(ctx context.Context, target, path string) (bool, error) {
	query := `SELECT COUNT(*) FROM uploads WHERE target=? AND path=? AND ok=1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, target, path).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query uploads: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, COALESCE(finished_at, 0), target, pattern, total, failed
		FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run              Run
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Target, &run.Pattern, &run.Total, &run.Failed); err != nil {
			return nil, err
		}
		run.StartedAt, run.FinishedAt = fromMillis(started), fromMillis(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *SQLiteRepository) Uploads(ctx context.Context, runID string) ([]Upload, error) {
	query := `SELECT run_id, request_id, path, target, ok, status, attempts, error, not_attempted, created_at
		FROM uploads WHERE run_id=? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var (
			u       Upload
			created int64
		)
		if err := rows.Scan(&u.RunID, &u.RequestID, &u.Path, &u.Target, &u.OK, &u.Status, &u.Attempts, &u.Error, &u.NotAttempted, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = fromMillis(created)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
