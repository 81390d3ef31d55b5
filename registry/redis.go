package registry

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the registry in a Redis list. RPUSH is atomic, so concurrent
// appends are never lost. Duplicates are kept, like Store.
type Redis struct {
	rdb redis.UniversalClient
	key string
}

var _ Registry = (*Redis)(nil)

// NewRedis stores the list under key; pass the cache's registry key
// (prefix + "_metadata") to keep the key layout identical to Store.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	return &Redis{rdb: client, key: key}
}

func (r *Redis) Append(ctx context.Context, physicalKey string) error {
	return r.rdb.RPush(ctx, r.key, physicalKey).Err()
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return keys, err
}

// Prune pipelines one LREM per key.
func (r *Redis) Prune(ctx context.Context, physicalKeys []string) error {
	if len(physicalKeys) == 0 {
		return nil
	}
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range physicalKeys {
			p.LRem(ctx, r.key, 0, k)
		}
		return nil
	})
	return err
}
