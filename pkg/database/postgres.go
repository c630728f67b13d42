package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trivgame/qcache/pkg/config"
	"github.com/trivgame/qcache/pkg/retry"
)

// DB wraps a pgxpool connection pool. The pool is fixed-size; callers block
// waiting for a free connection rather than growing an unbounded queue.
type DB struct {
	*pgxpool.Pool
}

// NewConnection creates a new database connection pool and verifies
// connectivity. Startup connectivity failures are surfaced to the caller,
// which treats them as fatal.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 20
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	// Retry the initial connection: the database container may still be
	// coming up when the service starts.
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close drains in-flight work and closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
