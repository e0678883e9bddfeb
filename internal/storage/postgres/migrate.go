package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Awhitter/spanish1/internal/storage/migrations"
)

// Migrate applies pending migrations, one transaction per file.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.SQL.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.Version(ctx)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	files, err := migrations.Load(migrations.Postgres)
	if err != nil {
		return err
	}

	for _, m := range files {
		if m.Version <= current {
			continue
		}

		tx, err := db.SQL.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Name, err)
		}

		slog.Info("applied migration", "name", m.Name, "version", m.Version, "dialect", migrations.Postgres)
	}

	return nil
}

// Version returns the current schema version
func (db *DB) Version(ctx context.Context) (int, error) {
	var version int
	err := db.SQL.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}
