// Package migrations embeds the goose migrations for the SQL storage backends.
package migrations

import "embed"

// SQLite holds migrations under the "sqlite" directory.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds migrations under the "postgres" directory.
//
//go:embed postgres/*.sql
var Postgres embed.FS
