package handler

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/adapter/api/middleware"
	"homelink/internal/usecase"
)

var (
	conversationHandler *ConversationHandler
)

func Setup(messagingUseCase *usecase.MessagingUseCase) {
	conversationHandler = NewConversationHandler(messagingUseCase)
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

// actorFrom reads the caller the auth middleware stored on the context.
func actorFrom(c echo.Context) usecase.Actor {
	uid, _ := c.Get(middleware.ContextUserID).(string)
	role, _ := c.Get(middleware.ContextRole).(string)
	return usecase.Actor{UserID: uid, Role: role}
}
