package router

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/api/middleware"
	"homelink/internal/infrastructure/ratelimit"
)

// SetupWebSocketRouter throttles connection attempts per client before
// authenticating the upgrade.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	e.GET("/ws", wsHandler.HandleWebSocket,
		middleware.RateLimit(limiter, ratelimit.ActionConnect),
		authMiddleware.Authenticate,
	)
}
