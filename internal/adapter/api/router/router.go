package router

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/api/middleware"
	"homelink/internal/infrastructure/ratelimit"
)

// Handlers collects what Setup routes. Attachments and DevTokens may be nil
// when their backends are not configured.
type Handlers struct {
	Conversations *handler.ConversationHandler
	WebSocket     *handler.WebSocketHandler
	Health        *handler.HealthHandler
	Users         *handler.UserHandler
	Attachments   *handler.AttachmentHandler
	DevTokens     *handler.DevTokenHandler
}

func Setup(e *echo.Echo, environment string, handlers Handlers, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, limiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e, handlers.Health)
	SetupConversationRouter(e, handlers.Conversations, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, handlers.WebSocket, authMiddleware, limiter)
	SetupUserRouter(e, handlers.Users, authMiddleware)
	if handlers.Attachments != nil {
		SetupAttachmentRouter(e, handlers.Attachments, authMiddleware)
	}
	SetupDevRouter(e, environment, handlers.DevTokens)
}
