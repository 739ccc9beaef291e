package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/autofill/internal/dbx"
)

// Dialect holds the statements that differ between SQL engines.
type Dialect struct {
	Name   string
	Select string
	Upsert string
	Delete string
}

var (
	SQLiteDialect = Dialect{
		Name:   "sqlite",
		Select: `SELECT value FROM storage WHERE key = ?`,
		Upsert: `INSERT INTO storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		Delete: `DELETE FROM storage WHERE key = ?`,
	}

	PostgresDialect = Dialect{
		Name:   "postgres",
		Select: `SELECT value FROM storage WHERE key = $1`,
		Upsert: `INSERT INTO storage (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		Delete: `DELETE FROM storage WHERE key = $1`,
	}
)

// SQLArea stores each key as a row of the storage table. Multi-key writes
// run in a single transaction.
type SQLArea struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLArea(db *sql.DB, d Dialect) *SQLArea {
	return &SQLArea{db: db, dialect: d}
}

// DB exposes the underlying handle so callers can close it.
func (r *SQLArea) DB() *sql.DB {
	return r.db
}

func (r *SQLArea) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		var value []byte
		err := r.db.QueryRowContext(ctx, r.dialect.Select, k).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get storage[%s]: %w", k, err)
		}
		out[k] = value
	}
	return out, nil
}

func (r *SQLArea) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for k, v := range items {
			if _, err := tx.ExecContext(ctx, r.dialect.Upsert, k, v); err != nil {
				return fmt.Errorf("failed to set storage[%s]: %w", k, err)
			}
		}
		return nil
	})
}

func (r *SQLArea) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, r.dialect.Delete, k); err != nil {
				return fmt.Errorf("failed to delete storage[%s]: %w", k, err)
			}
		}
		return nil
	})
}
