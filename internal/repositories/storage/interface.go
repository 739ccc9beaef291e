package storage

import (
	"context"
)

// Area is a key/value store with multi-key reads and writes.
//
// Get returns only the keys that exist; a missing key is not an error.
// Set upserts every item. Remove ignores keys that do not exist.
type Area interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, items map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
}
