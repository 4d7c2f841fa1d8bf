package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultHistoryLimit is the number of runs ListRuns returns when no limit is given.
const DefaultHistoryLimit = 20

// ResetTimeout bounds Reset.
const ResetTimeout = 30 * time.Second

const listRunsSQL = `
SELECT id, input_path, output_path, row_count, bytes_read,
       hashtag_fallbacks, mention_fallbacks, started_at, finished_at
FROM clean_runs
ORDER BY started_at DESC
LIMIT $1`

const resetSQL = `TRUNCATE cleaned_posts, clean_runs`

// RunRecord is one stored run.
type RunRecord struct {
	ID               uuid.UUID `db:"id"`
	InputPath        string    `db:"input_path"`
	OutputPath       string    `db:"output_path"`
	RowCount         int32     `db:"row_count"`
	BytesRead        int64     `db:"bytes_read"`
	HashtagFallbacks int32     `db:"hashtag_fallbacks"`
	MentionFallbacks int32     `db:"mention_fallbacks"`
	StartedAt        time.Time `db:"started_at"`
	FinishedAt       time.Time `db:"finished_at"`
}

// Duration is the wall time the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Querier runs a query returning rows. Satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return listRuns(ctx, s.pool, limit)
}

func listRuns(ctx context.Context, q Querier, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := q.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, pgx.RowToStructByName[RunRecord])
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Reset deletes every stored run and its posts.
func (s *Store) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()
	return reset(ctx, s.pool)
}

func reset(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, resetSQL); err != nil {
		return fmt.Errorf("reset runs: %w", err)
	}
	return nil
}
