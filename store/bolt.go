package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var recordBucket = []byte("records")

// Bolt keeps records in a single bbolt bucket.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the bbolt database at path with 0o600 rights.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt at %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("can't create record bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		// Seek rather than Get: Get cannot tell an empty record from a
		// missing one.
		k, v := tx.Bucket(recordBucket).Cursor().Seek([]byte(key))
		if k == nil || !bytes.Equal(k, []byte(key)) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		// v is only valid inside the transaction.
		data = append([]byte{}, v...)
		return nil
	})
	return data, mapBoltErr(err)
}

func (b *Bolt) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordBucket).Put([]byte(key), data)
	})
	return mapBoltErr(err)
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func mapBoltErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
