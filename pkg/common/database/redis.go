package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urisense/platform/pkg/common/config"
	"github.com/urisense/platform/pkg/common/logger"
)

// OpenRedis creates a client and pings it. An unreachable server is an error
// so callers can decide whether to run without a cache.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Log.WithField("addr", client.Options().Addr).Info("Connected to Redis")
	return client, nil
}
