package ledger

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemoryStore keeps the ledger in a map. Updates hold the store mutex for
// their whole duration, so invocations are strictly serialized.
type MemoryStore struct {
	data  map[string][]byte
	mutex *deadlock.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		mutex: &deadlock.Mutex{},
	}
}

type memoryReader struct {
	data map[string][]byte
}

func (r memoryReader) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := r.data[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

type memoryBatch struct {
	memoryReader
	staged staged
}

func (b *memoryBatch) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, found, hit := b.staged.lookup(key); hit {
		return v, found, nil
	}
	return b.memoryReader.Get(ctx, key)
}

func (b *memoryBatch) Put(key string, value []byte) {
	b.staged.put(key, value)
}

func (b *memoryBatch) Delete(key string) {
	b.staged.delete(key)
}

func (s *MemoryStore) View(ctx context.Context, fn func(r Reader) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(memoryReader{data: s.data})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(b Batch) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	b := &memoryBatch{memoryReader: memoryReader{data: s.data}, staged: make(staged)}
	if err := fn(b); err != nil {
		return err
	}
	for k, v := range b.staged {
		if v == nil {
			delete(s.data, k)
			continue
		}
		s.data[k] = v
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range maps.Keys(s.data) {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Snapshot serializes the whole store.
func (s *MemoryStore) Snapshot() ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return json.MarshalIndent(s.data, "", " ")
}

// Restore replaces the contents of the store with a Snapshot.
func (s *MemoryStore) Restore(b []byte) error {
	data := make(map[string][]byte)
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data = data
	return nil
}
