// Package metadata is the relational store behind sequences, topics,
// chunks, column statistics, notify logs and layers. It is accessed
// through typed helper queries only; no caller builds SQL directly.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting every typed
// helper below run against either a bare connection or an open
// transaction without duplicating query logic.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the read-only entry point: every method runs directly
// against the shared *sql.DB handle. Use WithTx for multi-statement
// operations that must commit or roll back atomically.
type Repository struct {
	db *sql.DB
}

// Tx is the read/write entry point, scoped to a single transaction.
type Tx struct {
	tx *sql.Tx
}

// NewRepository opens (creating if absent) a SQLite database at path, runs
// migrations, and ensures the default layer exists.
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set foreign_keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.ensureDefaultLayer(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure default layer: %w", err)
	}

	return repo, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// WithTx runs fn within a transaction, committing on success and rolling
// back if fn returns an error or panics.
func (r *Repository) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) ensureDefaultLayer(ctx context.Context) error {
	return r.WithTx(ctx, func(tx *Tx) error {
		existing, err := tx.GetLayerByName(ctx, DefaultLayerName)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		_, err = tx.CreateLayer(ctx, DefaultLayerName, DefaultLayerDescription)
		return err
	})
}
