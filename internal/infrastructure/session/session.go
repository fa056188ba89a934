package session

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homelink/internal/domain/service"
	"homelink/pkg/errors"
)

const issuer = "homelink"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the HS256 session cookie used by browser
// clients that do not hold a Firebase ID token.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewManager(secret string, ttl time.Duration, cookieName string, secure bool) *Manager {
	return &Manager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secure,
		now:        time.Now,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue signs a session for identity and returns the token with its expiry.
func (m *Manager) Issue(identity service.Identity) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Internal("Failed to sign session", err)
	}
	return token, expires, nil
}

func (m *Manager) VerifyToken(ctx context.Context, token string) (*service.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Unauthorized("Session expired", err)
		}
		return nil, errors.Unauthorized("Invalid session", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.Unauthorized("Invalid session", nil)
	}

	return &service.Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

// Cookie wraps a signed token in the session cookie.
func (m *Manager) Cookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
