package sidecar

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/Paranoid-AF/vctrace"
)

// Store keeps TOML sidecars in a bbolt bucket keyed by request ID.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// NewStore creates a store over an open database.
func NewStore(db *bbolt.DB, bucket string) *Store {
	return &Store{db: db, bucket: []byte(bucket)}
}

// OpenStore opens (or creates) the database file at path.
func OpenStore(path, bucket string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening sidecar store %s: %w", path, err)
	}
	return NewStore(db, bucket), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes r, replacing any sidecar with the same request ID.
func (s *Store) Put(_ context.Context, r *vctrace.TraceRecord) error {
	if r.RequestID == "" {
		return errors.New("sidecar: empty request id")
	}
	if err := r.CheckContract(); err != nil {
		return err
	}
	data, err := EncodeTOML(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(r.RequestID), data)
	})
}

// Get returns the record stored under requestID, or vctrace.ErrNotFound.
func (s *Store) Get(_ context.Context, requestID string) (*vctrace.TraceRecord, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return vctrace.ErrNotFound
		}
		v := b.Get([]byte(requestID))
		if v == nil {
			return vctrace.ErrNotFound
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return DecodeTOML(data)
}

// Delete removes the record stored under requestID.
func (s *Store) Delete(_ context.Context, requestID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return vctrace.ErrNotFound
		}
		if b.Get([]byte(requestID)) == nil {
			return vctrace.ErrNotFound
		}
		return b.Delete([]byte(requestID))
	})
}

// ForEach calls fn for every stored record in key order. Iteration stops at
// the first error from fn, a decode failure, or context cancellation.
func (s *Store) ForEach(ctx context.Context, fn func(*vctrace.TraceRecord) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			r, err := DecodeTOML(v)
			if err != nil {
				return fmt.Errorf("sidecar %q: %w", k, err)
			}
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
}
