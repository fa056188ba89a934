package usecase

import (
	"homelink/internal/domain/entity"
	"homelink/internal/domain/service"
)

// Actor is the caller on whose behalf an operation runs. It is always passed
// explicitly; nothing here reads request state.
type Actor struct {
	UserID string
	Role   string
}

func ActorFromIdentity(identity *service.Identity) Actor {
	if identity == nil {
		return Actor{}
	}
	return Actor{UserID: identity.UserID, Role: identity.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}
