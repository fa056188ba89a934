package router

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, environment string, devTokenHandler *handler.DevTokenHandler) {
	if environment != "development" || devTokenHandler == nil {
		return
	}

	e.POST("/_dev/session", devTokenHandler.IssueSession)
	e.POST("/_dev/custom-token", devTokenHandler.IssueCustomToken)
}
