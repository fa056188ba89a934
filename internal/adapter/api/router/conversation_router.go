package router

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/api/middleware"
)

func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", conversationHandler.StartConversation)
	conversations.GET("", conversationHandler.ListConversations)
	conversations.GET("/quota", conversationHandler.GetWeeklyQuota)
	conversations.GET("/:id", conversationHandler.GetConversation)
	conversations.DELETE("/:id", conversationHandler.DeactivateConversation)
	conversations.PUT("/:id/read", conversationHandler.MarkConversationRead)

	conversations.GET("/:id/messages", conversationHandler.GetMessages)
	conversations.POST("/:id/messages", conversationHandler.SendMessage)
	conversations.PUT("/:id/messages/:messageId/read", conversationHandler.MarkMessageRead)

	// moderation: admins read and close any conversation
	admin := e.Group("/v1/admin/conversations")
	admin.Use(authMiddleware.Authenticate, adminMiddleware.AdminOnly)

	admin.GET("/:id", conversationHandler.GetConversation)
	admin.GET("/:id/messages", conversationHandler.GetMessages)
	admin.DELETE("/:id", conversationHandler.DeactivateConversation)
}
