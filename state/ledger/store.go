package ledger

import (
	"context"
	"errors"
)

// ErrConflict is returned when an update could not be serialized against
// concurrent updates touching the same keys.
var ErrConflict = errors.New("ledger: conflicting concurrent update")

type Reader interface {
	// Get returns a copy of the value stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Batch stages writes. Nothing is visible outside the batch until the
// surrounding Update returns nil.
type Batch interface {
	Reader
	Put(key string, value []byte)
	Delete(key string)
}

// Store is the persistent key value space behind the ledger. Update must run
// fn with read-modify-write atomicity: either every staged write lands or
// none do, and no other Update interleaves with it.
type Store interface {
	View(ctx context.Context, fn func(r Reader) error) error
	Update(ctx context.Context, fn func(b Batch) error) error
	// Keys lists every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// staged is the write overlay shared by the batch implementations. A nil
// value marks a deletion.
type staged map[string][]byte

func (s staged) lookup(key string) (value []byte, found bool, hit bool) {
	v, ok := s[key]
	if !ok {
		return nil, false, false
	}
	if v == nil {
		return nil, false, true
	}
	return clone(v), true, true
}

func (s staged) put(key string, value []byte) {
	if value == nil {
		value = []byte{}
	}
	s[key] = clone(value)
}

func (s staged) delete(key string) {
	s[key] = nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
