package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implementa la ventana deslizante sobre Redis, compartida entre
// instancias del servicio. Cada clave usa un sorted set de timestamps.
type RedisLimiter struct {
	rdb *redis.Client
	cfg Config
}

// NewRedisLimiter crea un limiter respaldado por Redis.
func NewRedisLimiter(rdb *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, cfg: cfg}
}

func limiterKey(key string) string {
	return fmt.Sprintf("ratelimit:attempts:%s", key)
}

// Allow verifica si la clave tiene intentos disponibles dentro de la ventana.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rkey := limiterKey(key)
	cutoff := time.Now().Add(-l.cfg.Window)

	pipe := l.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	countCmd := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, ErrBackendFailure(err).WithDetail("key", key)
	}

	return countCmd.Val() < int64(l.cfg.MaxAttempts), nil
}

// RecordFailure registra un intento fallido dentro de la ventana.
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	rkey := limiterKey(key)
	now := time.Now()

	pipe := l.rdb.Pipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	// La clave expira sola cuando la ventana queda vacía
	pipe.Expire(ctx, rkey, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrBackendFailure(err).WithDetail("key", key)
	}

	return nil
}

// Reset limpia el contador de una clave.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, limiterKey(key)).Err(); err != nil {
		return ErrBackendFailure(err).WithDetail("key", key)
	}
	return nil
}
