// Package storage persists the extension's synced key/value area.
//
// Values are raw JSON documents keyed by name ("profiles", "lastProfile").
// Backends: in-memory, SQLite, PostgreSQL and S3. Guarded wraps any backend so
// that every call first checks the extension runtime is still alive.
package storage
