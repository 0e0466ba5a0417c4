package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationPool is the minimal interface required to run migrations.
// *pgxpool.Pool satisfies this interface.
type MigrationPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const claimMigration = `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

// Connect opens a pgxpool connection and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies every .sql file in migrationsDir in lexicographic order.
// Each file runs in its own transaction together with its schema_migrations row,
// so a file that was already applied is skipped.
func RunMigrations(ctx context.Context, pool MigrationPool, migrationsDir string, log *slog.Logger) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("reading migrations dir %s: %w", migrationsDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil
	}
	sort.Strings(files)

	if log == nil {
		log = slog.Default()
	}

	if err := inTx(ctx, pool, func(tx pgx.Tx) (bool, error) {
		_, err := tx.Exec(ctx, createMigrationsTable)
		return err == nil, err
	}); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	for _, name := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		applied := false
		err = inTx(ctx, pool, func(tx pgx.Tx) (bool, error) {
			tag, err := tx.Exec(ctx, claimMigration, name)
			if err != nil {
				return false, fmt.Errorf("recording migration: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return false, nil
			}
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return false, fmt.Errorf("executing SQL: %w", err)
			}
			applied = true
			return true, nil
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if applied {
			log.Info("migration applied", "file", name)
		} else {
			log.Debug("migration already applied", "file", name)
		}
	}

	return nil
}

// inTx runs fn in a transaction. fn reports whether to commit; the transaction
// is rolled back when fn declines or fails.
func inTx(ctx context.Context, pool MigrationPool, fn func(pgx.Tx) (bool, error)) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	commit, err := fn(tx)
	if err != nil || !commit {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
