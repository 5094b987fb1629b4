package store

import (
	"context"
	"time"

	"tidestream/pkg/common_errors"
	"tidestream/pkg/hashfuncs"

	"github.com/go-redis/redis/v9"
	"golang.org/x/xerrors"
)

// RedisKeyValueStore backs reconciler state with Redis so the TTL is
// enforced natively and state survives a process restart. Keys shard
// across the configured clients by hash. Store failures are surfaced
// as ErrStateStoreUnavailable; the owning partition treats them as
// fatal.
type RedisKeyValueStore struct {
	rdbs   []*redis.Client
	hasher hashfuncs.ByteSliceHasher
	ttl    time.Duration
	name   string
}

var _ = KeyValueStoreWithTTL(&RedisKeyValueStore{})

func NewRedisKeyValueStore(name string, rdbs []*redis.Client, ttl time.Duration) *RedisKeyValueStore {
	return &RedisKeyValueStore{
		rdbs: rdbs,
		ttl:  ttl,
		name: name,
	}
}

func (st *RedisKeyValueStore) Name() string {
	return st.name
}

func (st *RedisKeyValueStore) redisKey(key []byte) string {
	return st.name + ":" + string(key)
}

func (st *RedisKeyValueStore) clientFor(key []byte) *redis.Client {
	return st.rdbs[st.hasher.HashSum64(key)%uint64(len(st.rdbs))]
}

func (st *RedisKeyValueStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	val, err := st.clientFor(key).Get(ctx, st.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Errorf("redis get %s: %v: %w", st.name, err, common_errors.ErrStateStoreUnavailable)
	}
	return val, true, nil
}

func (st *RedisKeyValueStore) Put(ctx context.Context, key []byte, value []byte) error {
	err := st.clientFor(key).Set(ctx, st.redisKey(key), value, st.ttl).Err()
	if err != nil {
		return xerrors.Errorf("redis set %s: %v: %w", st.name, err, common_errors.ErrStateStoreUnavailable)
	}
	return nil
}

func (st *RedisKeyValueStore) Delete(ctx context.Context, key []byte) error {
	err := st.clientFor(key).Del(ctx, st.redisKey(key)).Err()
	if err != nil {
		return xerrors.Errorf("redis del %s: %v: %w", st.name, err, common_errors.ErrStateStoreUnavailable)
	}
	return nil
}
