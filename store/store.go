// Package store provides the destinations versioned records are read from
// and written to. A record is addressed by a path-like key and always
// replaced whole; there are no partial writes or appends.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrClosed     = errors.New("store is closed")
	ErrInvalidKey = errors.New("invalid key")
)

// Store reads and writes whole records. Implementations must be safe for
// concurrent use; writers to the same key are not coordinated.
type Store interface {
	// Read returns the full contents stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the contents stored under key.
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}
