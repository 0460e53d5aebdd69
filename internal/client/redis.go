package client

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/config"
)

// NewRedisClient connects and pings; callers own Close.
func NewRedisClient(ctx context.Context, conf config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", conf.Addr, err)
	}

	log.Info("redis client connected", zap.String("addr", conf.Addr))
	return client, nil
}
