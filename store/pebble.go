package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Pebble keeps records in a pebble LSM directory.
type Pebble struct {
	db     *pebble.DB
	write  *pebble.WriteOptions
	mu     sync.RWMutex // pebble panics on use after Close
	closed bool
}

// OpenPebble opens or creates a pebble database in dir. With sync set
// every write is synced to disk before returning.
func OpenPebble(dir string, sync bool) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	write := pebble.NoSync
	if sync {
		write = pebble.Sync
	}
	return &Pebble{db: db, write: write}, nil
}

func (p *Pebble) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	// v is only valid until closer is closed.
	data := bytes.Clone(v)
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (p *Pebble) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	return p.db.Set([]byte(key), data, p.write)
}

func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
