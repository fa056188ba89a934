package service

import "context"

// Identity is the authenticated caller as resolved by the auth middleware.
type Identity struct {
	UserID string
	Role   string
}

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}
