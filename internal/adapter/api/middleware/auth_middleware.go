package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/session"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
	"homelink/pkg/response"
)

const (
	ContextUserID = "uid"
	ContextRole   = "role"
)

// AuthMiddleware resolves the caller from a Bearer token, the session
// cookie, or a token query parameter on websocket upgrades.
type AuthMiddleware struct {
	verifier service.TokenVerifier
	sessions *session.Manager
}

func NewAuthMiddleware(verifier service.TokenVerifier, sessions *session.Manager) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		sessions: sessions,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := m.identify(c)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextRole, identity.Role)
		return next(c)
	}
}

func (m *AuthMiddleware) identify(c echo.Context) (*service.Identity, error) {
	ctx := c.Request().Context()

	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return nil, errors.Unauthorized("Invalid authorization format", nil)
		}
		return m.verify(c, strings.TrimSpace(parts[1]))
	}

	if m.sessions != nil {
		if cookie, err := c.Cookie(m.sessions.CookieName()); err == nil && cookie.Value != "" {
			return m.sessions.VerifyToken(ctx, cookie.Value)
		}
	}

	if websocketUpgrade(c) {
		if token := c.QueryParam("token"); token != "" {
			return m.verify(c, token)
		}
	}

	return nil, errors.Unauthorized("Authentication required", nil)
}

func (m *AuthMiddleware) verify(c echo.Context, token string) (*service.Identity, error) {
	if m.verifier == nil {
		return nil, errors.Unauthorized("Token authentication is disabled", nil)
	}
	identity, err := m.verifier.VerifyToken(c.Request().Context(), token)
	if err != nil {
		logger.Debug("token rejected from %s: %v", c.RealIP(), err)
		if errors.Is(err, errors.CodeUnauthorized) {
			return nil, err
		}
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return identity, nil
}

func websocketUpgrade(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket")
}
