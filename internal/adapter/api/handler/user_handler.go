package handler

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
	"homelink/pkg/response"
)

// UserHandler serves the profile slice chat clients need to render
// participants. Profiles are written by the listings service, not here.
type UserHandler struct {
	userRepo repository.UserRepository
}

func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
	}
}

type participantResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
}

func participantFrom(user *entity.User) participantResponse {
	return participantResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Role:        user.Role,
		Verified:    user.IsVerified(),
	}
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	actor := actorFrom(c)

	user, err := h.userRepo.GetByID(c.Request().Context(), actor.UserID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			return response.Error(c, err)
		}
		// Authenticated but not yet synced from the listings service.
		return response.Success(c, map[string]interface{}{
			"id":       actor.UserID,
			"role":     actor.Role,
			"verified": false,
			"synced":   false,
		})
	}

	return response.Success(c, user)
}

// GetParticipant returns the public card for another user. Email and
// timestamps are left out.
func (h *UserHandler) GetParticipant(c echo.Context) error {
	user, err := h.userRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, participantFrom(user))
}
