// Package store persists cleaned runs to PostgreSQL.
//
// Each run is one row in clean_runs and its records are bulk-loaded into
// cleaned_posts with COPY, inside a single transaction.
package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/postclean/internal/config"
	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/logging"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS clean_runs (
    id          uuid PRIMARY KEY,
    input_path  text NOT NULL,
    output_path text NOT NULL,
    row_count   integer NOT NULL,
    bytes_read  bigint NOT NULL,
    hashtag_fallbacks integer NOT NULL,
    mention_fallbacks integer NOT NULL,
    started_at  timestamptz NOT NULL,
    finished_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS clean_runs_started_at_idx ON clean_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS cleaned_posts (
    run_id         uuid NOT NULL REFERENCES clean_runs(id) ON DELETE CASCADE,
    row_num        integer NOT NULL,
    created_at     timestamptz,
    post_date      date,
    text           text,
    entities       text,
    tweet_length   integer,
    hashtags       text[] NOT NULL,
    hashtag_count  integer NOT NULL,
    mentions       text[] NOT NULL,
    mentions_count integer NOT NULL,
    extra          jsonb NOT NULL,
    PRIMARY KEY (run_id, row_num)
);`

const insertRunSQL = `
INSERT INTO clean_runs (id, input_path, output_path, row_count, bytes_read,
    hashtag_fallbacks, mention_fallbacks, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

var postColumns = []string{
	"run_id", "row_num", "created_at", "post_date", "text", "entities",
	"tweet_length", "hashtags", "hashtag_count", "mentions", "mentions_count", "extra",
}

// DBTX is the subset of pgx used to write a run. Satisfied by pgx.Tx,
// *pgxpool.Pool and *pgx.Conn.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Store is a core.Sink backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logging.FromContext(ctx).Info("connected to database", "database", poolConfig.ConnConfig.Database)
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the run tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

// SaveRun implements core.Sink. Either the whole run is stored or nothing is.
func (s *Store) SaveRun(ctx context.Context, run *core.RunResult, t *core.Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := saveRun(ctx, tx, run, t, time.Now())
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	logging.WithFields(ctx, "rows", n).Info("run persisted")
	return nil
}

func saveRun(ctx context.Context, db DBTX, run *core.RunResult, t *core.Table, finished time.Time) (int64, error) {
	_, err := db.Exec(ctx, insertRunSQL,
		run.RunID, run.InputPath, run.OutputPath, t.Len(), run.BytesRead,
		run.Stats.HashtagFallbacks, run.Stats.MentionFallbacks, run.StartedAt, finished)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{"cleaned_posts"}, postColumns, newPostSource(run, t))
	if err != nil {
		return 0, fmt.Errorf("copy posts: %w", err)
	}
	if n != int64(t.Len()) {
		return n, fmt.Errorf("copy posts: wrote %d of %d rows", n, t.Len())
	}
	return n, nil
}

// extraColumns lists the table columns that have no dedicated database column.
func extraColumns(t *core.Table) []string {
	known := []string{core.ColCreatedAt, core.ColText, core.ColEntities}
	known = append(known, core.DerivedColumns...)

	var extra []string
	for _, name := range t.Columns() {
		if !slices.Contains(known, name) {
			extra = append(extra, name)
		}
	}
	return extra
}

// postSource streams table rows to COPY.
type postSource struct {
	run   *core.RunResult
	t     *core.Table
	extra []string
	i     int
	err   error
}

func newPostSource(run *core.RunResult, t *core.Table) *postSource {
	return &postSource{run: run, t: t, extra: extraColumns(t), i: -1}
}

func (p *postSource) Next() bool {
	if p.err != nil {
		return false
	}
	p.i++
	return p.i < p.t.Len()
}

func (p *postSource) Values() ([]any, error) {
	i, t := p.i, p.t
	extra, err := extraJSON(t, i, p.extra)
	if err != nil {
		p.err = fmt.Errorf("row %d extra columns: %w", i+1, err)
		return nil, p.err
	}
	return []any{
		p.run.RunID,
		int32(i + 1),
		toPgTimestamptz(t.Value(i, core.ColCreatedAt)),
		toPgDate(t.Value(i, core.ColDate)),
		toPgText(t.Value(i, core.ColText)),
		toPgText(t.Value(i, core.ColEntities)),
		toPgInt4(t.Value(i, core.ColTweetLength)),
		toTextArray(t.Value(i, core.ColHashtags)),
		toPgInt4(t.Value(i, core.ColHashtagCount)),
		toTextArray(t.Value(i, core.ColMentions)),
		toPgInt4(t.Value(i, core.ColMentionsCount)),
		extra,
	}, nil
}

func (p *postSource) Err() error {
	return p.err
}
