package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/autofill/internal/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

var gooseUpContext = goose.UpContext

// RunMigrations applies the embedded migrations in dir of fsys.
func RunMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, dir)
}

// OpenSQLite opens (creating if needed) the database at dsn and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLArea, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	// a single writer avoids SQLITE_BUSY and keeps :memory: on one connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db, migrations.SQLite, "sqlite3", "sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewSQLArea(db, SQLiteDialect), nil
}

// OpenPostgres connects through pgx and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQLArea, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := RunMigrations(ctx, db, migrations.Postgres, "pgx", "postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewSQLArea(db, PostgresDialect), nil
}
