package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"shapeshift3d/internal/logger"
)

// RateLimitMessage возвращается при превышении лимита попыток.
const RateLimitMessage = "Too many attempts. Please try again later."

const rateLimitPrefix = "shapeshift:ratelimit"

// RateLimit ограничивает число запросов с одного IP к маршруту в окне фиксированной длины.
// Без клиента Redis или с неположительным лимитом middleware ничего не делает.
// Ошибки Redis не блокируют запрос.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := rateKey(c, window)
		count, err := hit(c.Request.Context(), rdb, key, window)
		if err != nil {
			logger.L.Warn().Err(err).Str("key", key).Msg("ошибка redis при ограничении частоты, запрос пропущен")
			c.Next()
			return
		}

		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > limit {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			logger.L.Info().Str("key", key).Int64("count", count).Msg("превышен лимит попыток")
			c.String(http.StatusTooManyRequests, RateLimitMessage)
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context, window time.Duration) string {
	slot := time.Now().UnixNano() / int64(window)
	return fmt.Sprintf("%s:%s:%s:%d", rateLimitPrefix, c.ClientIP(), c.Request.URL.Path, slot)
}

func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка счетчика %s: %w", key, err)
	}
	return incr.Val(), nil
}
