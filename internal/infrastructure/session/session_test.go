package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/service"
	"homelink/pkg/errors"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("secret", time.Hour, "session", false)

	token, expires, err := m.Issue(service.Identity{UserID: "alice", Role: entity.RoleLandlord})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	identity, err := m.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
	assert.Equal(t, entity.RoleLandlord, identity.Role)

	cookie := m.Cookie(token, expires)
	assert.Equal(t, "session", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestVerifyRejectsExpiredSession(t *testing.T) {
	m := NewManager("secret", time.Minute, "session", false)
	issued := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, _, err := m.Issue(service.Identity{UserID: "alice", Role: entity.RoleRenter})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.VerifyToken(context.Background(), token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestVerifyRejectsForeignSignatures(t *testing.T) {
	other := NewManager("another-secret", time.Hour, "session", false)
	token, _, err := other.Issue(service.Identity{UserID: "mallory", Role: entity.RoleAdmin})
	require.NoError(t, err)

	m := NewManager("secret", time.Hour, "session", false)
	_, err = m.VerifyToken(context.Background(), token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "mallory", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.VerifyToken(context.Background(), unsigned)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}
