package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink/internal/adapter/api"
	"homelink/internal/adapter/api/handler"
	"homelink/internal/adapter/api/middleware"
	"homelink/internal/adapter/api/router"
	"homelink/internal/adapter/repository"
	"homelink/internal/domain/entity"
	"homelink/internal/infrastructure/session"
	"homelink/pkg/errors"
)

type uploadRecorder struct {
	contentType string
	folder      string
	body        []byte
	deleted     []string
}

func (u *uploadRecorder) UploadFile(_ context.Context, file io.Reader, fileType, folder string, isPublic bool) (string, error) {
	body, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	u.contentType, u.folder, u.body = fileType, folder, body
	return "https://storage.googleapis.com/bucket/public/" + folder + "/a.png", nil
}

func (u *uploadRecorder) DeleteFile(_ context.Context, fileURL string) error {
	u.deleted = append(u.deleted, fileURL)
	return nil
}

func (u *uploadRecorder) Close() error { return nil }

func multipartUpload(t *testing.T, contentType string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func serveAs(h echo.HandlerFunc, req *http.Request, uid string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = api.NewValidator()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != "" {
		c.Set(middleware.ContextUserID, uid)
	}
	h(c)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func attachmentServer(files *uploadRecorder) *echo.Echo {
	e := echo.New()
	tokens := tokenTable{
		"t-u1": {UserID: "u1", Role: entity.RoleRenter},
		"t-u2": {UserID: "u2", Role: entity.RoleLandlord},
	}
	router.SetupAttachmentRouter(e,
		handler.NewAttachmentHandler(files, repository.NewMemoryFileMetadataRepository()),
		middleware.NewAuthMiddleware(tokens, nil),
	)
	return e
}

func call(e *echo.Echo, req *http.Request, token string) *httptest.ResponseRecorder {
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type uploaded struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	UploadedBy  string `json:"uploaded_by"`
	MessageType string `json:"message_type"`
	Size        int64  `json:"size"`
}

func TestAttachmentUpload(t *testing.T) {
	files := &uploadRecorder{}
	e := attachmentServer(files)

	rec := call(e, multipartUpload(t, "image/png", []byte("png-bytes")), "t-u1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result uploaded
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "u1", result.UploadedBy)
	assert.Equal(t, entity.MessageTypeImage, result.MessageType)
	assert.EqualValues(t, len("png-bytes"), result.Size)
	assert.Contains(t, result.URL, "attachments/u1")

	assert.Equal(t, "image/png", files.contentType)
	assert.Equal(t, "attachments/u1", files.folder)
	assert.Equal(t, []byte("png-bytes"), files.body)

	rec = call(e, httptest.NewRequest(http.MethodGet, "/v1/attachments", nil), "t-u1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []uploaded `json:"items"`
		Total int64      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &list))
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, result.ID, list.Items[0].ID)

	rec = call(e, httptest.NewRequest(http.MethodGet, "/v1/attachments", nil), "t-u2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"items":[]`)
}

func TestAttachmentUploadRejectsUnknownType(t *testing.T) {
	files := &uploadRecorder{}
	e := attachmentServer(files)

	rec := call(e, multipartUpload(t, "application/x-msdownload", []byte("MZ")), "t-u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeInvalidInput, decodeEnvelope(t, rec).Error.Code)
	assert.Nil(t, files.body)
}

func TestAttachmentPDFIsFileMessage(t *testing.T) {
	e := attachmentServer(&uploadRecorder{})

	rec := call(e, multipartUpload(t, "application/pdf", []byte("%PDF")), "t-u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"message_type":"file"`)
}

func TestAttachmentDeleteOnlyByUploader(t *testing.T) {
	files := &uploadRecorder{}
	e := attachmentServer(files)

	rec := call(e, multipartUpload(t, "image/jpeg", []byte("jpeg")), "t-u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	var result uploaded
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))

	rec = call(e, httptest.NewRequest(http.MethodDelete, "/v1/attachments/"+result.ID, nil), "t-u2")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, files.deleted)

	rec = call(e, httptest.NewRequest(http.MethodDelete, "/v1/attachments/"+result.ID, nil), "t-u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{result.URL}, files.deleted)

	rec = call(e, httptest.NewRequest(http.MethodDelete, "/v1/attachments/"+result.ID, nil), "t-u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadinessReportsFailingBackend(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"documents": func(context.Context) error { return nil },
		"realtime":  func(context.Context) error { return stderrors.New("connection refused") },
	})

	rec := serveAs(h.CheckReadiness, httptest.NewRequest(http.MethodGet, "/health/ready", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status   string            `json:"status"`
		Backends map[string]string `json:"backends"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Backends["documents"])
	assert.Equal(t, "connection refused", body.Backends["realtime"])
}

func TestReadinessAllHealthy(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"documents": func(context.Context) error { return nil },
	})

	rec := serveAs(h.CheckReadiness, httptest.NewRequest(http.MethodGet, "/health/ready", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}

func TestDevSessionUsesStoredRole(t *testing.T) {
	sessions := session.NewManager("dev-secret", time.Hour, "homelink_session", false)
	users := repository.NewMemoryUserRepository(&entity.User{ID: "u2", Role: entity.RoleLandlord})
	h := handler.NewDevTokenHandler(sessions, nil, users)

	req := httptest.NewRequest(http.MethodPost, "/_dev/session", strings.NewReader(`{"user_id":"u2","role":"admin"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serveAs(h.IssueSession, req, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "homelink_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	identity, err := sessions.VerifyToken(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "u2", identity.UserID)
	assert.Equal(t, entity.RoleLandlord, identity.Role)
}

func TestDevSessionDefaultsUnknownUserToRenter(t *testing.T) {
	sessions := session.NewManager("dev-secret", time.Hour, "homelink_session", false)
	h := handler.NewDevTokenHandler(sessions, nil, repository.NewMemoryUserRepository())

	req := httptest.NewRequest(http.MethodPost, "/_dev/session", strings.NewReader(`{"user_id":"newcomer"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serveAs(h.IssueSession, req, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"role":"renter"`)
}

func TestDevCustomTokenUnavailableWithoutFirebase(t *testing.T) {
	h := handler.NewDevTokenHandler(nil, nil, repository.NewMemoryUserRepository())

	req := httptest.NewRequest(http.MethodPost, "/_dev/custom-token", strings.NewReader(`{"user_id":"u1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serveAs(h.IssueCustomToken, req, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserProfileAndParticipantCard(t *testing.T) {
	users := repository.NewMemoryUserRepository(&entity.User{
		ID:                 "u2",
		DisplayName:        "Landlord Two",
		Email:              "two@example.com",
		Role:               entity.RoleLandlord,
		VerificationStatus: entity.VerificationStatusVerified,
	})
	tokens := tokenTable{
		"t-u1": {UserID: "u1", Role: entity.RoleRenter},
		"t-u2": {UserID: "u2", Role: entity.RoleLandlord},
	}
	e := echo.New()
	router.SetupUserRouter(e, handler.NewUserHandler(users), middleware.NewAuthMiddleware(tokens, nil))

	rec := call(e, httptest.NewRequest(http.MethodGet, "/v1/users/u2", nil), "t-u1")
	require.Equal(t, http.StatusOK, rec.Code)
	card := string(decodeEnvelope(t, rec).Data)
	assert.Contains(t, card, `"display_name":"Landlord Two"`)
	assert.Contains(t, card, `"verified":true`)
	assert.NotContains(t, card, "two@example.com")

	rec = call(e, httptest.NewRequest(http.MethodGet, "/v1/users/me", nil), "t-u2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), "two@example.com")

	rec = call(e, httptest.NewRequest(http.MethodGet, "/v1/users/me", nil), "t-u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"synced":false`)

	rec = call(e, httptest.NewRequest(http.MethodGet, "/v1/users/ghost", nil), "t-u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
