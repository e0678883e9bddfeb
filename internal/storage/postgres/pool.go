// Package postgres stores exercises and quiz sessions in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// PoolConfig tunes the connection pools
type PoolConfig struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// DB holds the two handles the stores use: a pgx pool for session records
// and a database/sql handle for migrations and the exercise table.
type DB struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Open connects both handles and verifies connectivity.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)

	return &DB{Pool: pool, SQL: db}, nil
}

// Close releases both handles
func (db *DB) Close() error {
	db.Pool.Close()
	return db.SQL.Close()
}
