// Package snapshot persists periodic copies of the aggregated analytics so
// the history survives restarts of the analytics service.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
)

// Snapshot is one persisted copy of the aggregated stats.
type Snapshot struct {
	CapturedAt time.Time                 `json:"captured_at"`
	Stats      analytics.AggregatedStats `json:"stats"`
}

// Store keeps snapshots in an analytics_snapshots table.
type Store struct {
	db      *sql.DB
	dialect store.Dialect
	logger  *slog.Logger
}

// NewStore wraps db. Call Migrate before first use.
func NewStore(db *sql.DB, dialect store.Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "analytics-snapshots"),
	}
}

// Migrate creates the snapshots table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	dataType, timeType := "TEXT", "TIMESTAMP"
	if s.dialect.Name == store.Postgres.Name {
		dataType, timeType = "JSONB", "TIMESTAMPTZ"
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		captured_at %s NOT NULL,
		data        %s NOT NULL
	)`, timeType, dataType)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return nil
}

// Save persists stats captured at the given time.
func (s *Store) Save(ctx context.Context, capturedAt time.Time, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO analytics_snapshots (captured_at, data) VALUES (%s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	if _, err := s.db.ExecContext(ctx, query, capturedAt.UTC(), string(data)); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_runs", stats.TotalRuns)
	return nil
}

// Latest returns the most recent snapshot, or nil if none exists yet.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	snaps, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// List returns up to limit snapshots, newest first. Corrupt rows are
// skipped.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	query := fmt.Sprintf(`SELECT captured_at, data FROM analytics_snapshots
		ORDER BY captured_at DESC LIMIT %s`, s.dialect.Placeholder(1))
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snaps := make([]Snapshot, 0, limit)
	for rows.Next() {
		var snap Snapshot
		var data []byte
		if err := rows.Scan(&snap.CapturedAt, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// StartPeriodicSave snapshots agg every interval and once more on shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if err := s.Save(ctx, now, agg.Stats()); err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Save(shutdownCtx, time.Now(), agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
