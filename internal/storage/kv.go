// Package storage persists the ledger document and its backups as JSON
// values in a key-value store.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// KV is the persistence port. Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
