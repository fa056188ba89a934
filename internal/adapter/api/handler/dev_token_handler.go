package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/session"
	"homelink/pkg/errors"
	"homelink/pkg/response"
)

// CustomTokenIssuer mints Firebase custom tokens the client exchanges for
// an ID token.
type CustomTokenIssuer interface {
	CustomToken(ctx context.Context, uid, role string) (string, error)
}

// DevTokenHandler hands out credentials for local testing. It is only
// routed in development.
type DevTokenHandler struct {
	sessions *session.Manager
	tokens   CustomTokenIssuer
	userRepo repository.UserRepository
}

func NewDevTokenHandler(sessions *session.Manager, tokens CustomTokenIssuer, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		sessions: sessions,
		tokens:   tokens,
		userRepo: userRepo,
	}
}

type devTokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=renter landlord agent admin"`
}

// identity prefers the stored profile's role over the requested one.
func (h *DevTokenHandler) identity(c echo.Context) (*service.Identity, error) {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}

	identity := &service.Identity{UserID: req.UserID, Role: req.Role}
	user, err := h.userRepo.GetByID(c.Request().Context(), req.UserID)
	switch {
	case err == nil && user.Role != "":
		identity.Role = user.Role
	case err != nil && !errors.Is(err, errors.CodeNotFound):
		return nil, errors.Wrap(err, "Failed to load user profile")
	}
	if identity.Role == "" {
		identity.Role = entity.RoleRenter
	}
	return identity, nil
}

// IssueSession sets the session cookie for the requested user.
func (h *DevTokenHandler) IssueSession(c echo.Context) error {
	if h.sessions == nil {
		return response.Error(c, errors.NotFound("Session login", nil))
	}

	identity, err := h.identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	token, expires, err := h.sessions.Issue(*identity)
	if err != nil {
		return response.Error(c, err)
	}
	c.SetCookie(h.sessions.Cookie(token, expires))

	return response.Created(c, map[string]interface{}{
		"user_id":    identity.UserID,
		"role":       identity.Role,
		"token":      token,
		"expires_at": expires,
	})
}

// IssueCustomToken mints a Firebase custom token carrying the role claim.
func (h *DevTokenHandler) IssueCustomToken(c echo.Context) error {
	if h.tokens == nil {
		return response.Error(c, errors.NotFound("Firebase custom token", nil))
	}

	identity, err := h.identity(c)
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.tokens.CustomToken(c.Request().Context(), identity.UserID, identity.Role)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"user_id":      identity.UserID,
		"role":         identity.Role,
		"custom_token": token,
	})
}
