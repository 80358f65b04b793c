package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-portal/internal/config"
)

// Redis wraps the go-redis client used for the avatar cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client. It returns nil when Redis is disabled; an
// unreachable server only produces a warning since avatar caching is optional.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled || cfg.Addr == "" {
		logger.Info("redis disabled; avatar cache off")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client}
}

// Handle returns the client, or nil when Redis is disabled.
func (r *Redis) Handle() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
