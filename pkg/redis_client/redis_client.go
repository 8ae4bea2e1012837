package redis_client

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v9"
	"golang.org/x/xerrors"
)

// GetRedisClients returns one client per comma separated address.
func GetRedisClients(rawAddr string) []*redis.Client {
	addrArr := strings.Split(rawAddr, ",")
	rdbArr := make([]*redis.Client, len(addrArr))
	for i := 0; i < len(addrArr); i++ {
		rdbArr[i] = redis.NewClient(&redis.Options{
			Addr:     strings.TrimSpace(addrArr[i]),
			Password: "", // no password set
			DB:       0,  // use default DB
		})
	}
	return rdbArr
}

// GetRedisClient connects to the first address of rawAddr and checks it
// is reachable.
func GetRedisClient(ctx context.Context, rawAddr string) (*redis.Client, error) {
	rdb := GetRedisClients(rawAddr)[0]
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, xerrors.Errorf("ping redis %s: %w", rawAddr, err)
	}
	return rdb, nil
}
