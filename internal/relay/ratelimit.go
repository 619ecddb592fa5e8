package relay

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"worklink/internal/observability"
)

// checkRateLimit implements a fixed window counter in Redis. Returns true
// if the request is allowed.
func checkRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit enforces `limit` requests per `window` per authenticated user.
// Fails open when Redis is unavailable: large uploads are expensive but an
// outage in the limiter store should not take the relay down with it.
func (s *Server) RateLimit(limit int, window time.Duration, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.config.Env == "test" || s.config.Env == "development" {
			return c.Next()
		}

		id := c.IP()
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			id = "user:" + uid
		}

		allowed, err := checkRateLimit(c.Context(), s.redis, resource, id, limit, window)
		if err != nil {
			log.Printf("WARNING: rate limit check failed for %s: %v", resource, err)
			return c.Next()
		}
		if !allowed {
			observability.UploadFailuresTotal.WithLabelValues("rate_limit").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
