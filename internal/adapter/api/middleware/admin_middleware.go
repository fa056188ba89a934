package middleware

import (
	"github.com/labstack/echo/v4"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
	"homelink/pkg/response"
)

type AdminMiddleware struct {
	userRepo repository.UserRepository
}

func NewAdminMiddleware(userRepo repository.UserRepository) *AdminMiddleware {
	return &AdminMiddleware{
		userRepo: userRepo,
	}
}

// AdminOnly admits callers whose token carries the admin role, or whose
// stored profile does when the token predates the role change.
func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, ok := c.Get(ContextUserID).(string)
		if !ok || uid == "" {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}

		if role, _ := c.Get(ContextRole).(string); role == entity.RoleAdmin {
			return next(c)
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return response.Error(c, errors.Forbidden("Admin privileges required", nil))
			}
			return response.Error(c, errors.Wrap(err, "Failed to verify admin privileges"))
		}
		if user.Role != entity.RoleAdmin {
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}

		c.Set(ContextRole, entity.RoleAdmin)
		return next(c)
	}
}
