package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"shapeshift3d/internal/logger"
)

// NewRedisClient подключается к Redis для ограничения частоты входа.
// Возвращает nil, если REDIS_ADDR пуст или сервер недоступен: тогда лимит выключен.
func NewRedisClient(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.L.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis недоступен, ограничение частоты входа выключено")
		_ = client.Close()
		return nil
	}
	logger.L.Info().Str("addr", cfg.RedisAddr).Msg("подключение к redis установлено")
	return client
}
