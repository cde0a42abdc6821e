package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stellarlinkco/luma/internal/config"
)

// RedisBackend stores records in Redis: plain keys for profiles and sessions,
// lists for summaries, with TTLs applied per write. Connection sharing and
// thread safety are delegated to the go-redis client pool.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(cfg config.StorageConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: connect to redis: %v", ErrStorage, err)
	}

	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrStorage, key, err)
	}
	return val, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (r *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrStorage, key, err)
	}
	return n > 0, nil
}

func (r *RedisBackend) GetList(ctx context.Context, key string, limit int) ([]string, error) {
	items, err := r.client.LRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lrange %s: %v", ErrStorage, key, err)
	}
	return items, nil
}

func (r *RedisBackend) AddToList(ctx context.Context, key, value string, maxLen int) error {
	if err := r.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", ErrStorage, key, err)
	}
	if maxLen > 0 {
		if err := r.client.LTrim(ctx, key, 0, int64(maxLen)-1).Err(); err != nil {
			return fmt.Errorf("%w: ltrim %s: %v", ErrStorage, key, err)
		}
	}
	return nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrStorage, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
