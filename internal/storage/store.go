// Package storage provides the persisted key-value blob store backing
// the credential collection and the per-account snapshots. Writes are
// atomic replace-on-write so concurrent read-modify-write callers never
// observe a torn blob.
package storage

import "context"

// BlobStore persists opaque blobs under well-known keys
type BlobStore interface {
	// Get returns the blob for key, or nil if absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Put atomically replaces the blob for key
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the blob for key; deleting an absent key is a no-op
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys with the given prefix
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}
