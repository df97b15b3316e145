package storage

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("storage: key not found")
	ErrClosed      = errors.New("storage: engine closed")
)

// KV is an ordered key-value store. KVRepository keeps one JSON value per
// row in it.
type KV interface {
	// Get returns ErrKeyNotFound for a missing key.
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error

	// Scan visits the keys under prefix in order until fn returns false.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// DeleteIf removes every key under prefix that match accepts, atomically.
	DeleteIf(ctx context.Context, prefix []byte, match func(key, value []byte) bool) (int, error)

	// NextID returns the next value of a named counter. The first is 1.
	NextID(name string) (int64, error)

	Close() error
}
