// Package store persists analysis runs (inputs summary plus the full
// recommendation list) so results can be revisited and exported later. The
// same SQL runs on PostgreSQL for the server and SQLite for the CLI.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/gap"
	apperrors "github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/errors"
)

// Run is one persisted analysis.
type Run struct {
	ID              string               `json:"id"`
	CreatedAt       time.Time            `json:"created_at"`
	PageCount       int                  `json:"page_count"`
	QueryCount      int                  `json:"query_count"`
	MatchedCount    int                  `json:"matched_count"`
	Recommendations []gap.Recommendation `json:"recommendations"`
}

// RunSummary is a Run without its recommendations, for listings.
type RunSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	PageCount    int       `json:"page_count"`
	QueryCount   int       `json:"query_count"`
	MatchedCount int       `json:"matched_count"`
}

// RunStore is implemented by SQLStore and by test fakes.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	Schema      []string
}

// Postgres stores recommendations as JSONB.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id              TEXT PRIMARY KEY,
			created_at      TIMESTAMPTZ NOT NULL,
			page_count      INTEGER NOT NULL,
			query_count     INTEGER NOT NULL,
			matched_count   INTEGER NOT NULL,
			recommendations JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS analysis_runs_created_at_idx ON analysis_runs (created_at DESC)`,
	},
}

// SQLite stores recommendations as JSON text.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id              TEXT PRIMARY KEY,
			created_at      TIMESTAMP NOT NULL,
			page_count      INTEGER NOT NULL,
			query_count     INTEGER NOT NULL,
			matched_count   INTEGER NOT NULL,
			recommendations TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS analysis_runs_created_at_idx ON analysis_runs (created_at DESC)`,
	},
}

// SQLStore is a RunStore over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLStore wraps db. Call Migrate before first use.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "run-store", "dialect", dialect.Name),
	}
}

// Migrate creates the runs table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range s.dialect.Schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying schema: %w", err)
			}
		}
		return nil
	})
}

// SaveRun inserts run. Re-saving an existing id is a no-op.
func (s *SQLStore) SaveRun(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run.Recommendations)
	if err != nil {
		return fmt.Errorf("marshaling recommendations: %w: %w", apperrors.ErrInvalidInput, err)
	}
	query := fmt.Sprintf(
		`INSERT INTO analysis_runs (id, created_at, page_count, query_count, matched_count, recommendations)
		VALUES (%s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO NOTHING`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6),
	)
	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.CreatedAt.UTC(), run.PageCount, run.QueryCount, run.MatchedCount, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving analysis run %s: %w", run.ID, err)
	}
	s.logger.Info("analysis run saved",
		"run_id", run.ID,
		"queries", run.QueryCount,
		"matched", run.MatchedCount,
	)
	return nil
}

// GetRun loads a run with its recommendations.
func (s *SQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := fmt.Sprintf(
		`SELECT id, created_at, page_count, query_count, matched_count, recommendations
		FROM analysis_runs WHERE id = %s`, s.ph(1))
	var run Run
	var data []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.CreatedAt, &run.PageCount, &run.QueryCount, &run.MatchedCount, &data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, apperrors.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &run.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshaling run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the newest runs first.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := fmt.Sprintf(
		`SELECT id, created_at, page_count, query_count, matched_count
		FROM analysis_runs ORDER BY created_at DESC, id LIMIT %s`, s.ph(1))
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0, limit)
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.PageCount, &r.QueryCount, &r.MatchedCount); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) ph(n int) string {
	return s.dialect.Placeholder(n)
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
