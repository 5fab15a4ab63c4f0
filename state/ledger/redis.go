package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/exp/slices"
)

const (
	defaultRedisOpTimeout = 5 * time.Second
	defaultRedisRetries   = 16
	defaultRedisPrefix    = "timelock:"
)

// RedisStore keeps the ledger in Redis. Update runs as an optimistic
// WATCH/MULTI/EXEC transaction over every key the batch reads; when another
// client changes one of those keys first the whole update is re-run.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	retries int
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	prefix  string
	retries int
	timeout time.Duration
}

// WithPrefix namespaces every key.
func WithPrefix(prefix string) RedisOption {
	return func(o *redisStoreOptions) {
		o.prefix = prefix
	}
}

// WithRetries bounds how often a conflicting update is re-run before ErrConflict.
func WithRetries(n int) RedisOption {
	return func(o *redisStoreOptions) {
		o.retries = n
	}
}

// WithTimeout sets the deadline of a single Update.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{prefix: defaultRedisPrefix, retries: defaultRedisRetries, timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retries < 1 {
		o.retries = 1
	}
	return &RedisStore{client: client, prefix: o.prefix, retries: o.retries, timeout: o.timeout}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisReader struct {
	cmd    getter
	prefix string
}

func (r redisReader) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cmd.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

type redisBatch struct {
	tx     *redis.Tx
	prefix string
	staged staged
}

func (b *redisBatch) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, found, hit := b.staged.lookup(key); hit {
		return v, found, nil
	}
	if err := b.tx.Watch(ctx, b.prefix+key).Err(); err != nil {
		return nil, false, err
	}
	return redisReader{cmd: b.tx, prefix: b.prefix}.Get(ctx, key)
}

func (b *redisBatch) Put(key string, value []byte) {
	b.staged.put(key, value)
}

func (b *redisBatch) Delete(key string) {
	b.staged.delete(key)
}

func (s *RedisStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(redisReader{cmd: s.client, prefix: s.prefix})
}

func (s *RedisStore) Update(ctx context.Context, fn func(b Batch) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for i := 0; i < s.retries; i++ {
		var fnErr error
		err := s.client.Watch(cctx, func(tx *redis.Tx) error {
			b := &redisBatch{tx: tx, prefix: s.prefix, staged: make(staged)}
			if fnErr = fn(b); fnErr != nil {
				return fnErr
			}
			if len(b.staged) == 0 {
				return nil
			}
			_, err := tx.TxPipelined(cctx, func(p redis.Pipeliner) error {
				for k, v := range b.staged {
					if v == nil {
						p.Del(cctx, s.prefix+k)
						continue
					}
					p.Set(cctx, s.prefix+k, v, 0)
				}
				return nil
			})
			return err
		})
		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// Keys walks the keyspace with SCAN. Keys written while the scan runs may or
// may not be listed.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
