package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/config"
)

// InitRedis initializes Redis client with config. Returns nil when Redis is
// unreachable so callers can continue without it.
func InitRedis(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithField("error", err.Error()).Warn("Redis connection failed, continuing without Redis")
		rdb.Close()
		return nil
	}

	log.WithField("addr", cfg.Addr()).Info("Redis connection established")
	return rdb
}
