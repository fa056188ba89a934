package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"homelink/internal/infrastructure/ratelimit"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
	"homelink/pkg/response"
)

// RateLimit throttles requests per client IP under the given action's rule.
// Authenticated callers are keyed by user id instead.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := "ip:" + c.RealIP()
			if uid, ok := c.Get(ContextUserID).(string); ok && uid != "" {
				subject = "user:" + uid
			}

			allowed, wait := limiter.Allow(subject, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s blocked on %s for %v", subject, action, wait)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
				return response.Error(c, errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %s", wait.Round(time.Second)), nil))
			}
			return next(c)
		}
	}
}
