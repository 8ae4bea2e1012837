package snapshot_store

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/hashfuncs"
	"streamsql/pkg/redis_client"
)

// RedisSnapshotStore shards snapshots over several redis instances by key.
// The epochs of a name are appended to a list on the instance owning the
// name.
type RedisSnapshotStore struct {
	rdb_arr []*redis.Client
}

var _ = SnapshotStore(&RedisSnapshotStore{})

func NewRedisSnapshotStore(rawAddr string) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb_arr: redis_client.GetRedisClients(rawAddr)}
}

func (rs *RedisSnapshotStore) clientFor(key string) *redis.Client {
	return rs.rdb_arr[hashfuncs.NameHash(key)%uint64(len(rs.rdb_arr))]
}

func epochListKey(name string) string {
	return name + "_epochs"
}

func (rs *RedisSnapshotStore) StoreSnapshot(ctx context.Context, name string, epoch uint64, snapshot []byte) error {
	key := snapshotKey(name, epoch)
	log.Debug().Str("key", key).Int("bytes", len(snapshot)).Msg("store snapshot in redis")
	if err := rs.clientFor(key).Set(ctx, key, snapshot, 0).Err(); err != nil {
		return xerrors.Errorf("set %s: %w", key, err)
	}
	listKey := epochListKey(name)
	return rs.clientFor(listKey).RPush(ctx, listKey, epoch).Err()
}

func (rs *RedisSnapshotStore) GetSnapshot(ctx context.Context, name string, epoch uint64) ([]byte, error) {
	key := snapshotKey(name, epoch)
	v, err := rs.clientFor(key).Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, xerrors.Errorf("snapshot %s: %w", key, common_errors.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (rs *RedisSnapshotStore) ListEpochs(ctx context.Context, name string) ([]uint64, error) {
	listKey := epochListKey(name)
	strs, err := rs.clientFor(listKey).LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	epochs := make([]uint64, 0, len(strs))
	for _, s := range strs {
		epoch, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("epoch list %s: %w", listKey, err)
		}
		epochs = append(epochs, epoch)
	}
	return epochs, nil
}

func (rs *RedisSnapshotStore) Close() error {
	for _, rdb := range rs.rdb_arr {
		if err := rdb.Close(); err != nil {
			return err
		}
	}
	return nil
}
