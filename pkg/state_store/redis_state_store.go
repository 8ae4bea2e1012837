package state_store

import (
	"context"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
)

const redisScanCount = 512

// RedisStateStore keeps each state entry as a redis string. Scan collects
// the matching keys with SCAN and sorts them since redis has no key order.
type RedisStateStore struct {
	rdb  *redis.Client
	name string
	// namespace is prepended to every key so several stores can share a
	// redis instance.
	namespace string
}

var _ = StateStore(&RedisStateStore{})

func NewRedisStateStore(name string, rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, name: name, namespace: name + ":"}
}

func (st *RedisStateStore) Name() string {
	return st.name
}

func (st *RedisStateStore) redisKey(key []byte) string {
	return st.namespace + string(key)
}

func (st *RedisStateStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	val, err := st.rdb.Get(ctx, st.redisKey(key)).Bytes()
	if xerrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, common_errors.StateStoreError(err)
	}
	return val, true, nil
}

func (st *RedisStateStore) Scan(ctx context.Context, prefix []byte) ([]KeyValue, error) {
	match := escapeGlob(st.redisKey(prefix)) + "*"
	var keys []string
	var cursor uint64
	for {
		batch, next, err := st.rdb.Scan(ctx, cursor, match, redisScanCount).Result()
		if err != nil {
			return nil, common_errors.StateStoreError(err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	keys = dedupSorted(keys)
	vals, err := st.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, common_errors.StateStoreError(err)
	}
	out := make([]KeyValue, 0, len(keys))
	for i, k := range keys {
		// deleted between SCAN and MGET
		if vals[i] == nil {
			continue
		}
		s, ok := vals[i].(string)
		if !ok {
			return nil, common_errors.StateStoreError(xerrors.Errorf("unexpected redis value type %T", vals[i]))
		}
		out = append(out, KeyValue{Key: []byte(k[len(st.namespace):]), Value: []byte(s)})
	}
	return out, nil
}

// IngestBatch applies the batch inside MULTI/EXEC.
func (st *RedisStateStore) IngestBatch(ctx context.Context, batch *WriteBatch) error {
	_, err := st.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range batch.Entries() {
			if e.IsDelete() {
				pipe.Del(ctx, st.redisKey(e.Key))
			} else {
				pipe.Set(ctx, st.redisKey(e.Key), e.Value, 0)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("store", st.name).Int("entries", batch.Len()).Msg("redis ingest failed")
		return common_errors.StateStoreError(err)
	}
	return nil
}

func (st *RedisStateStore) Close() error {
	return st.rdb.Close()
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
