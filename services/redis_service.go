package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key holds no value. The cache is a
// best-effort accelerator; every caller must tolerate a miss and fall back to
// the durable store.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value + set + sorted-set mirror in front of the durable
// store. No expiry is used anywhere; entries are refreshed by write-through
// and read-repair, never aged out.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetMulti writes several keys in one pipelined batch so multi-namespace
	// snapshots (id- and email-keyed) cannot be half-written.
	SetMulti(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRange returns the full sorted set in ascending score order.
	ZRange(ctx context.Context, key string) ([]string, error)
}

// RedisCache implements Cache on a go-redis client.
type RedisCache struct {
	Client *redis.Client
}

// InitializeRedisClient initializes the Redis client from REDIS_URL.
func InitializeRedisClient() *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Fatal("REDIS_URL environment variable is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse REDIS_URL: %v", err)
	}
	return redis.NewClient(opts)
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache get '%s': %w", key, err)
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.Client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache set '%s': %w", key, err)
	}
	return nil
}

func (c *RedisCache) SetMulti(ctx context.Context, entries map[string]string) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache pipelined set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *RedisCache) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := c.Client.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("cache sadd '%s': %w", key, err)
	}
	return nil
}

func (c *RedisCache) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := c.Client.SRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("cache srem '%s': %w", key, err)
	}
	return nil
}

func (c *RedisCache) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := c.Client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("cache sismember '%s': %w", key, err)
	}
	return ok, nil
}

func (c *RedisCache) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.Client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache smembers '%s': %w", key, err)
	}
	return members, nil
}

func (c *RedisCache) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := c.Client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("cache zadd '%s': %w", key, err)
	}
	return nil
}

func (c *RedisCache) ZRange(ctx context.Context, key string) ([]string, error) {
	members, err := c.Client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache zrange '%s': %w", key, err)
	}
	return members, nil
}
