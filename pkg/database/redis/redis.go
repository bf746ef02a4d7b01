package redis

import (
	"context"
	"fmt"
	"time"

	"adaptiveRouter/pkg/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to the snapshot cache and pings it once.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(clientOptions(cfg.Redis))

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func clientOptions(rc config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", rc.RedisHost, rc.RedisPort),
		Password:     rc.RedisPassword,
		Username:     "default",
		DB:           rc.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  rc.OpTimeout,
		WriteTimeout: rc.OpTimeout,
		PoolSize:     rc.PoolSize,
		MinIdleConns: min(rc.MinIdleConns, rc.PoolSize),
	}
}

// CloseRedisClient closes the Redis connection
func CloseRedisClient(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}

	return nil
}
