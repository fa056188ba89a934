package handler

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/usecase"
	"homelink/pkg/response"
	"homelink/pkg/utils"
)

type ConversationHandler struct {
	messagingUseCase *usecase.MessagingUseCase
}

func NewConversationHandler(messagingUseCase *usecase.MessagingUseCase) *ConversationHandler {
	return &ConversationHandler{
		messagingUseCase: messagingUseCase,
	}
}

type startConversationRequest struct {
	RecipientID      string `json:"recipient_id" validate:"required"`
	ListingReference string `json:"listing_reference" validate:"max=200"`
	InitialMessage   string `json:"initial_message" validate:"max=5000"`
	Type             string `json:"type" validate:"omitempty,oneof=text image file"`
	AttachmentURL    string `json:"attachment_url" validate:"omitempty,url"`
}

type sendMessageRequest struct {
	Content       string `json:"content" validate:"max=5000"`
	Type          string `json:"type" validate:"omitempty,oneof=text image file"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url"`
}

// StartConversation finds or opens the conversation with a recipient,
// optionally sending a first message in the same call.
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.messagingUseCase.StartConversation(c.Request().Context(), actorFrom(c), usecase.StartConversationInput{
		RecipientID:      req.RecipientID,
		ListingReference: req.ListingReference,
		InitialMessage:   req.InitialMessage,
		Type:             req.Type,
		AttachmentURL:    req.AttachmentURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if result.IsNew {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	conversations, err := h.messagingUseCase.ListConversations(c.Request().Context(), actorFrom(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conversations)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conversation, err := h.messagingUseCase.GetConversation(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conversation)
}

func (h *ConversationHandler) GetMessages(c echo.Context) error {
	pagination := utils.GetPaginationParams(c, 50)

	messages, total, err := h.messagingUseCase.GetMessages(
		c.Request().Context(),
		actorFrom(c),
		c.Param("id"),
		pagination.PageSize,
		pagination.Offset,
	)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Paginated(c, messages, total, pagination.Page, pagination.PageSize)
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messagingUseCase.SendMessage(c.Request().Context(), actorFrom(c), usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		Type:           req.Type,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}

func (h *ConversationHandler) MarkConversationRead(c echo.Context) error {
	marked, err := h.messagingUseCase.MarkConversationRead(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"conversation_id": c.Param("id"),
		"marked_read":     marked,
	})
}

func (h *ConversationHandler) MarkMessageRead(c echo.Context) error {
	message, err := h.messagingUseCase.MarkMessageRead(c.Request().Context(), actorFrom(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, message)
}

func (h *ConversationHandler) DeactivateConversation(c echo.Context) error {
	if err := h.messagingUseCase.DeactivateConversation(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"conversation_id": c.Param("id"),
		"is_active":       false,
	})
}

func (h *ConversationHandler) GetWeeklyQuota(c echo.Context) error {
	quota, err := h.messagingUseCase.WeeklyQuota(c.Request().Context(), actorFrom(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, quota)
}
