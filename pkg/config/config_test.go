package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 1, cfg.Matcher.Workers)
	assert.False(t, cfg.Matcher.CapRelevance)
	assert.Equal(t, "analysis-events", cfg.Kafka.Topics.AnalysisEvents)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9000
matcher:
  workers: 4
  capRelevance: true
redis:
  enabled: true
  cacheTTL: 30s
store:
  driver: sqlite
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("GAP_SERVER_PORT", "9100")
	t.Setenv("GAP_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Matcher.Workers)
	assert.True(t, cfg.Matcher.CapRelevance)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("GAP_STORE_DRIVER", "mongo")
	_, err := Load("")
	assert.ErrorContains(t, err, "store.driver")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}

func TestLoadRateLimit(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)

	t.Setenv("GAP_SERVER_RATE_LIMIT_RPS", "5")
	t.Setenv("GAP_SERVER_ALLOW_ORIGINS", "https://a.example,https://b.example")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowOrigins)

	t.Setenv("GAP_SERVER_RATE_LIMIT_RPS", "-1")
	_, err = Load("")
	assert.ErrorContains(t, err, "requestsPerSecond")
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Matcher.Workers)
	assert.Equal(t, time.Minute, cfg.Analytics.SnapshotInterval)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
}
