// Package database opens the PostgreSQL connection pool used by a load run.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/csv2oltp/internal/config"
	"github.com/JonMunkholm/csv2oltp/internal/core"
)

// Pool configuration. A run holds exactly one connection for its outer
// transaction.
const (
	DefaultMaxConns        = 2
	DefaultMinConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// Connect parses the configured connection string, opens a pool and pings
// the server. The ping is bounded by cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Target())
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Target())
	}

	return pool, nil
}

// Beginner returns a core.BeginFunc opening transactions on pool.
func Beginner(pool *pgxpool.Pool) core.BeginFunc {
	return func(ctx context.Context) (core.Tx, error) {
		return pool.Begin(ctx)
	}
}

// wrapConnectionError adds a hint for the most common connection failures.
func wrapConnectionError(err error, target string) error {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"):
		return fmt.Errorf("connection refused to %s (is PostgreSQL running? check DB_HOST and DB_PORT): %w", target, err)
	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf("cannot resolve host for %s (check DB_HOST): %w", target, err)
	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf("authentication failed for %s (check DB_USER and DB_PASS): %w", target, err)
	case strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "database"):
		return fmt.Errorf("database %s does not exist (check DB_NAME): %w", target, err)
	default:
		return fmt.Errorf("connect to %s: %w", target, err)
	}
}
