package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// IPRateLimit returns fiber middleware that limits requests per client IP.
// Requests pass through when redis is unavailable.
func IPRateLimit(limiter *SlidingWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Forbidden",
				"message": "Unable to determine client IP address",
			})
		}

		result, err := limiter.Allow(c.Context(), ip)
		if err != nil {
			c.Set("X-RateLimit-Error", err.Error())
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Config().Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too Many Requests",
				"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
				"retry_after": retryAfter,
			})
		}
		return c.Next()
	}
}
