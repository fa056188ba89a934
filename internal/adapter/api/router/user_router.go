package router

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, userHandler *handler.UserHandler, authMiddleware *middleware.AuthMiddleware) {
	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("/me", userHandler.GetProfile)
	users.GET("/:id", userHandler.GetParticipant)
}
