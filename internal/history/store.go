// Package history records conversion batch runs in PostgreSQL.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrDisabled is returned by callers when no database is configured.
var ErrDisabled = errors.New("history disabled: no database configured")

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// MaxRecentLimit caps Recent.
const MaxRecentLimit = 200

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// txBeginner is implemented by *pgxpool.Pool.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversion_runs (
    run_id       UUID PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL,
    file_count   INT NOT NULL,
    failed_count INT NOT NULL,
    error        TEXT
);

CREATE TABLE IF NOT EXISTS conversion_files (
    run_id    UUID NOT NULL REFERENCES conversion_runs(run_id) ON DELETE CASCADE,
    position  INT NOT NULL,
    input     TEXT NOT NULL,
    output    TEXT,
    row_count INT NOT NULL,
    error     TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS conversion_runs_started_at_idx ON conversion_runs (started_at DESC);
`

const insertRunSQL = `
INSERT INTO conversion_runs (run_id, started_at, duration_ms, file_count, failed_count, error)
VALUES ($1, $2, $3, $4, $5, $6)`

const insertFileSQL = `
INSERT INTO conversion_files (run_id, position, input, output, row_count, error)
VALUES ($1, $2, $3, $4, $5, $6)`

const recentRunsSQL = `
SELECT run_id, started_at, duration_ms, file_count, failed_count, error
FROM conversion_runs
ORDER BY started_at DESC
LIMIT $1`

const runFilesSQL = `
SELECT input, output, row_count, error
FROM conversion_files
WHERE run_id = $1
ORDER BY position`

// Run is a stored batch summary.
type Run struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Files     int           `json:"files"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// OK reports whether the run completed without failures.
func (r Run) OK() bool {
	return r.Error == "" && r.Failed == 0
}

// Store persists batch results. It implements core.RunRecorder.
type Store struct {
	db DBTX
}

// NewStore creates a Store on db.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the history tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

// RecordRun stores result and its per-file outcomes. When the underlying
// connection supports transactions the run is written atomically.
func (s *Store) RecordRun(ctx context.Context, result core.BatchResult) error {
	if b, ok := s.db.(txBeginner); ok {
		tx, err := b.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin history tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := insertRun(ctx, tx, result); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit history tx: %w", err)
		}
		return nil
	}
	return insertRun(ctx, s.db, result)
}

func insertRun(ctx context.Context, db DBTX, result core.BatchResult) error {
	runID := toPgUUID(result.RunID)
	if !runID.Valid {
		return errors.New("record run: missing run id")
	}

	_, err := db.Exec(ctx, insertRunSQL,
		runID,
		pgtype.Timestamptz{Time: result.StartedAt, Valid: true},
		result.Duration.Milliseconds(),
		len(result.Files),
		result.Failed(),
		toPgText(result.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", result.RunID, err)
	}

	for i, f := range result.Files {
		_, err := db.Exec(ctx, insertFileSQL,
			runID,
			i,
			f.Input,
			toPgText(f.Output),
			f.Rows,
			toPgText(f.Error),
		)
		if err != nil {
			return fmt.Errorf("insert run %s file %d: %w", result.RunID, i, err)
		}
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	rows, err := s.db.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id        pgtype.UUID
			startedAt pgtype.Timestamptz
			durMS     int64
			files     int32
			failed    int32
			errText   pgtype.Text
		)
		if err := rows.Scan(&id, &startedAt, &durMS, &files, &failed, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, Run{
			RunID:     pgUUIDToString(id),
			StartedAt: startedAt.Time,
			Duration:  time.Duration(durMS) * time.Millisecond,
			Files:     int(files),
			Failed:    int(failed),
			Error:     pgTextToString(errText),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Files returns the per-file outcomes of a run in batch order.
func (s *Store) Files(ctx context.Context, runID string) ([]core.FileResult, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	rows, err := s.db.Query(ctx, runFilesSQL, toPgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []core.FileResult
	for rows.Next() {
		var (
			input   string
			output  pgtype.Text
			n       int32
			errText pgtype.Text
		)
		if err := rows.Scan(&input, &output, &n, &errText); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, core.FileResult{
			Input:  input,
			Output: pgTextToString(output),
			Rows:   int(n),
			Error:  pgTextToString(errText),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run files: %w", err)
	}
	return files, nil
}
