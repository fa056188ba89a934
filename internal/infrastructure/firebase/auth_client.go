package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/service"
	"homelink/pkg/errors"
)

// roleClaim is the custom claim the profile service sets on every account.
const roleClaim = "role"

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*service.Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return identityFromClaims(result.UID, result.Claims), nil
}

// CustomToken mints a token a client can exchange for an ID token. Only the
// development session endpoint uses it.
func (f *FirebaseAuthClient) CustomToken(ctx context.Context, uid, role string) (string, error) {
	token, err := f.client.CustomTokenWithClaims(ctx, uid, map[string]interface{}{roleClaim: role})
	if err != nil {
		return "", errors.Internal("Failed to mint custom token", err)
	}
	return token, nil
}

func identityFromClaims(uid string, claims map[string]interface{}) *service.Identity {
	role, _ := claims[roleClaim].(string)
	switch role {
	case entity.RoleRenter, entity.RoleLandlord, entity.RoleAgent, entity.RoleAdmin:
	default:
		role = entity.RoleRenter
	}
	return &service.Identity{UserID: uid, Role: role}
}
