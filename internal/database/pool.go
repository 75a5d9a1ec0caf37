// Package database provides PostgreSQL connection pooling
// using pgx, plus the embedded goose schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSettings sizes the connection pool. Zero fields keep the defaults.
type PoolSettings struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolSettings suits a single API instance in front of Supabase.
func DefaultPoolSettings() PoolSettings {
	return PoolSettings{
		MaxConns:        25,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

func (s PoolSettings) withDefaults() PoolSettings {
	d := DefaultPoolSettings()
	if s.MaxConns > 0 {
		d.MaxConns = s.MaxConns
	}
	if s.MinConns > 0 {
		d.MinConns = s.MinConns
	}
	if s.MaxConnLifetime > 0 {
		d.MaxConnLifetime = s.MaxConnLifetime
	}
	if s.MaxConnIdleTime > 0 {
		d.MaxConnIdleTime = s.MaxConnIdleTime
	}
	if s.ConnectTimeout > 0 {
		d.ConnectTimeout = s.ConnectTimeout
	}
	return d
}

// NewPool connects a pool sized by settings and verifies it with a ping.
func NewPool(ctx context.Context, databaseURL string, settings PoolSettings) (*pgxpool.Pool, error) {
	config, err := poolConfig(databaseURL, settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, settings.withDefaults().ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return pool, nil
}

func poolConfig(databaseURL string, settings PoolSettings) (*pgxpool.Config, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	s := settings.withDefaults()
	if s.MinConns > s.MaxConns {
		return nil, fmt.Errorf("pool min conns %d exceeds max conns %d", s.MinConns, s.MaxConns)
	}
	config.MaxConns = s.MaxConns
	config.MinConns = s.MinConns
	config.MaxConnLifetime = s.MaxConnLifetime
	config.MaxConnIdleTime = s.MaxConnIdleTime
	config.HealthCheckPeriod = 30 * time.Second
	return config, nil
}
