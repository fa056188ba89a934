package router

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/api/middleware"
)

func SetupAttachmentRouter(e *echo.Echo, attachmentHandler *handler.AttachmentHandler, authMiddleware *middleware.AuthMiddleware) {
	attachments := e.Group("/v1/attachments")
	attachments.Use(authMiddleware.Authenticate)

	attachments.POST("", attachmentHandler.Upload)
	attachments.GET("", attachmentHandler.List)
	attachments.DELETE("/:id", attachmentHandler.Delete)
}
