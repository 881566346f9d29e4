package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/content-gap-analyzer/pkg/sqlite"
)

// Open connects the store selected by cfg.Store.Driver and migrates it.
// The "none" driver returns a nil store and a no-op close.
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, func() error, error) {
	var s *SQLStore
	var closeFn func() error

	switch cfg.Store.Driver {
	case "none":
		return nil, func() error { return nil }, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = NewSQLStore(client.DB, Postgres), client.Close
	case "sqlite":
		client, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = NewSQLStore(client.DB, SQLite), client.Close
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := s.Migrate(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("migrating %s store: %w", cfg.Store.Driver, err)
	}
	return s, closeFn, nil
}

// DB exposes the underlying handle for components sharing the database.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the store's SQL dialect.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}
