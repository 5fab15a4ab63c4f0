package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func get(t *testing.T, s Store, key string) ([]byte, bool) {
	t.Helper()
	var v []byte
	var ok bool
	require.NoError(t, s.View(context.Background(), func(r Reader) (err error) {
		v, ok, err = r.Get(context.Background(), key)
		return
	}))
	return v, ok
}

func TestStoreUpdateCommits(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Update(ctx, func(b Batch) error {
				b.Put("a", []byte("1"))
				b.Put("b", []byte("2"))
				v, ok, err := b.Get(ctx, "a")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, []byte("1"), v)
				return nil
			}))
			v, ok := get(t, s, "b")
			require.True(t, ok)
			assert.Equal(t, []byte("2"), v)

			require.NoError(t, s.Update(ctx, func(b Batch) error {
				b.Delete("a")
				_, ok, err := b.Get(ctx, "a")
				require.NoError(t, err)
				assert.False(t, ok)
				return nil
			}))
			_, ok = get(t, s, "a")
			assert.False(t, ok)
		})
	}
}

func TestStoreUpdateDiscardsOnError(t *testing.T) {
	boom := errors.New("boom")
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Update(ctx, func(b Batch) error {
				b.Put("kept", []byte("old"))
				return nil
			}))
			err := s.Update(ctx, func(b Batch) error {
				b.Put("kept", []byte("new"))
				b.Put("dropped", []byte("x"))
				return boom
			})
			require.ErrorIs(t, err, boom)

			v, _ := get(t, s, "kept")
			assert.Equal(t, []byte("old"), v)
			_, ok := get(t, s, "dropped")
			assert.False(t, ok)
		})
	}
}

func TestStoreValuesAreCopies(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			value := []byte("abc")
			require.NoError(t, s.Update(ctx, func(b Batch) error {
				b.Put("k", value)
				return nil
			}))
			value[0] = 'x'
			v, _ := get(t, s, "k")
			assert.Equal(t, []byte("abc"), v)
		})
	}
}

func TestStoreKeys(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Update(ctx, func(b Batch) error {
				for _, k := range []string{"record:ns:c", "record:ns:a", "record:other:x", "balance:a", "record:ns:b"} {
					b.Put(k, []byte{1})
				}
				return nil
			}))
			keys, err := s.Keys(ctx, "record:ns:")
			require.NoError(t, err)
			assert.Equal(t, []string{"record:ns:a", "record:ns:b", "record:ns:c"}, keys)

			keys, err = s.Keys(ctx, "missing:")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestRedisStoreRetriesOnConflict(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(s.prefix+"counter", "a"))

	attempts := 0
	require.NoError(t, s.Update(ctx, func(b Batch) error {
		attempts++
		v, _, err := b.Get(ctx, "counter")
		if err != nil {
			return err
		}
		if attempts == 1 {
			// another writer sneaks in between the read and the commit
			require.NoError(t, mr.Set(s.prefix+"counter", "b"))
		}
		b.Put("counter", append(v, '!'))
		return nil
	}))
	assert.Equal(t, 2, attempts)
	v, _ := get(t, s, "counter")
	assert.Equal(t, []byte("b!"), v)
}

func TestRedisStoreGivesUpAfterRetries(t *testing.T) {
	s, mr := newRedisStore(t, WithRetries(2))
	ctx := context.Background()

	attempts := 0
	err := s.Update(ctx, func(b Batch) error {
		attempts++
		if _, _, err := b.Get(ctx, "hot"); err != nil {
			return err
		}
		require.NoError(t, mr.Set(s.prefix+"hot", "changed"))
		b.Put("hot", []byte("mine"))
		return nil
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, attempts)
}

func TestRedisStorePrefix(t *testing.T) {
	s, mr := newRedisStore(t, WithPrefix("test:"))
	require.NoError(t, s.Update(context.Background(), func(b Batch) error {
		b.Put("k", []byte("v"))
		return nil
	}))
	v, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestMemoryStoreSnapshotRestore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(b Batch) error {
		b.Put("balance:b", []byte{2})
		b.Put("balance:a", []byte{1})
		b.Put("escrow:a", []byte{3})
		return nil
	}))
	keys, err := s.Keys(ctx, balancePrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"balance:a", "balance:b"}, keys)

	snap, err := s.Snapshot()
	require.NoError(t, err)

	restored := NewMemoryStore()
	require.NoError(t, restored.Restore(snap))
	all, err := s.Keys(ctx, "")
	require.NoError(t, err)
	restoredKeys, err := restored.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, all, restoredKeys)
	v, ok := get(t, restored, "escrow:a")
	require.True(t, ok)
	assert.Equal(t, []byte{3}, v)

	require.Error(t, restored.Restore([]byte("not json")))
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemoryStore().Update(ctx, func(b Batch) error {
		t.Fatal("update ran with a cancelled context")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
