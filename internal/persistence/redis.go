package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/config"
)

// Redis wraps the go-redis client used to read sessions shared with other
// helpdesk front-ends.
type Redis struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedis builds a client from configuration. The connection is checked
// lazily with Ping.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{Client: client, logger: logger}
}

// Get returns the string stored at key. found is false when the key does not
// exist.
func (r *Redis) Get(ctx context.Context, key string) (value string, found bool, err error) {
	if r == nil || r.Client == nil {
		return "", false, errors.New("redis client not configured")
	}
	value, err = r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("redis key missing", zap.String("key", key))
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
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
	if err := r.Client.Ping(ctx).Err(); err != nil {
		r.logger.Warn("unable to reach redis", zap.Error(err))
		return err
	}
	return nil
}
