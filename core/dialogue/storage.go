package dialogue

import (
	"context"
	"fmt"
)

// Record is one persisted dialogue state: opaque bytes plus the tag of the
// serializer that produced them, so a reader can pick the matching decoder.
type Record struct {
	Data   []byte
	Format string
}

// Storage persists dialogue records keyed by conversation identity.
//
// All backends share the same observable semantics: Get returns nil (not an
// error) for an absent key, Update upserts, Remove is a no-op on an absent
// key. Operations on a single key are atomic; a concurrent Get/Update/Remove
// on the same key observes a consistent before/after state. No ordering is
// guaranteed across distinct keys.
type Storage interface {
	Get(ctx context.Context, key int64) (*Record, error)
	Update(ctx context.Context, key int64, rec Record) error
	Remove(ctx context.Context, key int64) error
	Close() error
}

// StorageError wraps a backend I/O or connection fault. Absence of a record
// is never a StorageError.
type StorageError struct {
	Op  string
	Key int64
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("dialogue: storage %s key=%d: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DecodeError reports stored bytes that the configured serializer cannot
// read, including a format tag it does not recognize.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("dialogue: decode format=%q: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
