package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"mcptoolbox/internal/config"
	"mcptoolbox/internal/log"
)

const pingTimeout = 5 * time.Second

// New returns a Redis store when REDIS_URL is configured and an in-memory
// store otherwise.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.RedisURL == "" {
		log.Logger.Info("using in-memory store")
		return NewMemory(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	log.Logger.Info("using redis store",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.String("key_prefix", cfg.StoreKeyPrefix),
	)
	return NewRedis(client, cfg.StoreKeyPrefix)
}
