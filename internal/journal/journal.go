package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pbx/internal/dbx"
	"github.com/dmitrijs2005/pbx/internal/filex"
	"github.com/dmitrijs2005/pbx/internal/journal/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Journal is an open history database.
type Journal struct {
	db   *sql.DB
	Repo Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}
	return nil
}

// Open opens or creates the journal at path and migrates it.
func Open(ctx context.Context, path string) (*Journal, error) {
	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, Repo: NewSQLiteRepository(db)}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores the uploads of run and closes it in one transaction.
func (j *Journal) Record(ctx context.Context, run *Run, uploads []Upload) error {
	failed := 0
	for _, u := range uploads {
		if !u.OK {
			failed++
		}
	}
	finished := time.Now()

	err := dbx.WithTx(ctx, j.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		for i := range uploads {
			u := uploads[i]
			u.RunID = run.ID
			if u.Target == "" {
				u.Target = run.Target
			}
			if err := repo.RecordUpload(ctx, &u); err != nil {
				return err
			}
		}
		return repo.FinishRun(ctx, run.ID, finished, len(uploads), failed)
	})
	if err != nil {
		return err
	}

	run.FinishedAt, run.Total, run.Failed = finished, len(uploads), failed
	return nil
}
