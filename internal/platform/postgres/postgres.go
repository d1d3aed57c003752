// Package postgres opens the database/sql pool used by the Postgres stores.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/alangunning/nomulus/internal/platform/config"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
)

// DB wraps the pool with a health check for /health.
type DB struct {
	*sql.DB
}

// Open connects with the configured driver ("pgx" or lib/pq's "postgres")
// and pings the server.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	driver := cfg.Driver
	if driver == "" {
		driver = "pgx"
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return &DB{DB: db}, nil
}

// Health checks if the database connection is healthy.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}
