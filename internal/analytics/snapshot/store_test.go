package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/sqlite"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	client, err := sqlite.New(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "analytics.db")})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	s := NewStore(client.DB, store.SQLite)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestLatestEmpty(t *testing.T) {
	s := setupTestStore(t)
	snap, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveAndList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		stats := analytics.AggregatedStats{TotalRuns: int64(i), ByQuality: map[string]int64{"High": int64(i)}}
		require.NoError(t, s.Save(ctx, base.Add(time.Duration(i)*time.Minute), stats))
	}

	snaps, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(3), snaps[0].Stats.TotalRuns)
	assert.Equal(t, int64(2), snaps[1].Stats.TotalRuns)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(3), latest.Stats.ByQuality["High"])
}

func TestStartPeriodicSaveFinalSnapshot(t *testing.T) {
	s := setupTestStore(t)
	agg := analytics.NewAggregator()
	agg.Record(analytics.AnalysisEvent{RunID: "r1", Queries: 4, Matched: 2})

	ctx, cancel := context.WithCancel(context.Background())
	s.StartPeriodicSave(ctx, agg, time.Hour)
	cancel()

	require.Eventually(t, func() bool {
		snap, err := s.Latest(context.Background())
		return err == nil && snap != nil && snap.Stats.TotalRuns == 1
	}, 2*time.Second, 10*time.Millisecond)
}
