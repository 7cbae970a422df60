package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iigoraya/p2p-auction/internal/config"
)

// NewClient creates a new Redis client based on configuration. The same
// client backs both the rendezvous registry and the event broadcaster, so
// read/write timeouts stay short relative to the announce TTL.
func NewClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.DialTimeout / 2,
		WriteTimeout: cfg.Redis.DialTimeout / 2,
		PoolSize:     cfg.Redis.PoolSize,
		MaxRetries:   3,
	})

	return rdb
}

// PingRedis tests the Redis connection
func PingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return client.Ping(ctx).Err()
}
