package middleware

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/paysync/paysync/internal/validation"
)

// RateLimitConfig describes a fixed-window limiter keyed by an email field in
// the JSON body, falling back to the client IP.
type RateLimitConfig struct {
	Name    string
	Field   string
	Limit   int
	Window  time.Duration
	Message string
}

// RateLimit counts requests per key in Redis. It is a no-op without Redis and
// fails open on cache errors.
func RateLimit(cache *redis.Client, cfg RateLimitConfig, logger *slog.Logger) fiber.Handler {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Message == "" {
		cfg.Message = "too many requests, try again later"
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := c.IP()
		if cfg.Field != "" {
			// unparseable bodies are limited by client IP
			var body map[string]any
			if err := c.BodyParser(&body); err == nil {
				if v, ok := body[cfg.Field].(string); ok && strings.TrimSpace(v) != "" {
					subject = validation.NormalizeEmail(v)
				}
			}
		}

		key := "rl:" + cfg.Name + ":" + subject
		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit lookup failed", slog.String("limiter", cfg.Name), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, cfg.Window)
		}
		if cnt > int64(cfg.Limit) {
			if ttl, err := cache.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			}
			return fiber.NewError(fiber.StatusTooManyRequests, cfg.Message)
		}
		return c.Next()
	}
}
