package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/ratelimit"
	"homelink/internal/infrastructure/session"
	"homelink/pkg/errors"
	"homelink/pkg/response"
)

type staticVerifier map[string]*service.Identity

func (v staticVerifier) VerifyToken(_ context.Context, token string) (*service.Identity, error) {
	if identity, ok := v[token]; ok {
		return identity, nil
	}
	return nil, errors.Unauthorized("Invalid or expired token", nil)
}

type userStub map[string]*entity.User

func (s userStub) GetByID(_ context.Context, id string) (*entity.User, error) {
	if user, ok := s[id]; ok {
		return user, nil
	}
	return nil, errors.NotFound("User", nil)
}

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"uid":  c.Get(ContextUserID).(string),
		"role": c.Get(ContextRole).(string),
	})
}

func serve(t *testing.T, handler echo.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	var body map[string]string
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func newAuth() (*AuthMiddleware, *session.Manager) {
	sessions := session.NewManager("test-secret", time.Hour, "homelink_session", false)
	verifier := staticVerifier{"good": {UserID: "u1", Role: entity.RoleRenter}}
	return NewAuthMiddleware(verifier, sessions), sessions
}

func TestAuthenticateBearerToken(t *testing.T) {
	auth, _ := newAuth()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	rec, body := serve(t, auth.Authenticate(whoami), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", body["uid"])
	assert.Equal(t, entity.RoleRenter, body["role"])
}

func TestAuthenticateRejectsBadHeaders(t *testing.T) {
	auth, _ := newAuth()

	for _, header := range []string{"good", "Basic good", "Bearer ", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		rec, _ := serve(t, auth.Authenticate(whoami), req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, errors.CodeUnauthorized, errorCode(t, rec), header)
	}
}

func TestAuthenticateSessionCookie(t *testing.T) {
	auth, sessions := newAuth()
	token, expires, err := sessions.Issue(service.Identity{UserID: "u2", Role: entity.RoleLandlord})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessions.Cookie(token, expires))
	rec, body := serve(t, auth.Authenticate(whoami), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", body["uid"])
	assert.Equal(t, entity.RoleLandlord, body["role"])
}

func TestAuthenticateQueryTokenOnlyOnUpgrade(t *testing.T) {
	auth, _ := newAuth()

	plain := httptest.NewRequest(http.MethodGet, "/ws?token=good", nil)
	rec, _ := serve(t, auth.Authenticate(whoami), plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	upgrade := httptest.NewRequest(http.MethodGet, "/ws?token=good", nil)
	upgrade.Header.Set(echo.HeaderUpgrade, "websocket")
	rec, body := serve(t, auth.Authenticate(whoami), upgrade)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", body["uid"])
}

func TestAdminOnly(t *testing.T) {
	admins := NewAdminMiddleware(userStub{
		"promoted": {ID: "promoted", Role: entity.RoleAdmin},
		"plain":    {ID: "plain", Role: entity.RoleRenter},
	})

	cases := []struct {
		uid, role string
		want      int
	}{
		{"root", entity.RoleAdmin, http.StatusOK},
		{"promoted", entity.RoleRenter, http.StatusOK},
		{"plain", entity.RoleRenter, http.StatusForbidden},
		{"ghost", entity.RoleRenter, http.StatusForbidden},
	}

	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.Set(ContextUserID, tc.uid)
		c.Set(ContextRole, tc.role)

		require.NoError(t, admins.AdminOnly(whoami)(c))
		assert.Equal(t, tc.want, rec.Code, tc.uid)
	}
}

func TestRateLimitPerSubject(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(map[string]ratelimit.Rule{
		ratelimit.ActionConnect: {Burst: 2, Interval: time.Minute},
	})
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	limiter.WithClock(func() time.Time { return now })

	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	handler := RateLimit(limiter, ratelimit.ActionConnect)(ok)

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		require.NoError(t, handler(echo.New().NewContext(req, rec)))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)

	blocked := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Equal(t, errors.CodeTooManyRequests, errorCode(t, blocked))

	assert.Equal(t, http.StatusNoContent, call("10.0.0.2").Code)
}
