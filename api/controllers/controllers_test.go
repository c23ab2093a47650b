package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/api/middleware"
	"github.com/agrolease/agrolease-backend/internal/gateway/memstore"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

// serve routes one request through a chi router so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func asUser(req *http.Request, userID string, role enums.UserRole) *http.Request {
	ctx := middleware.WithRole(middleware.WithUserID(req.Context(), userID), role)
	ctx = session.WithContext(ctx, &session.Session{UserID: userID, Role: role, SignedIn: true, Resolved: true})
	return req.WithContext(ctx)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"gateway": up, "redis": up}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-AgroLease-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"gateway": up, "redis": down}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "down", env.Error.Details["redis"])
	assert.Equal(t, "ok", env.Error.Details["gateway"])
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg)(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"live"}}`, rec.Body.String())
}

func TestSessionCurrent(t *testing.T) {
	rec := httptest.NewRecorder()
	SessionCurrent(logger.Nop())(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil), "tenant-1", enums.UserRoleTenant))
	require.Equal(t, http.StatusOK, rec.Code)

	var sess session.Session
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sess))
	assert.Equal(t, "tenant-1", sess.UserID)
	assert.True(t, sess.SignedIn)

	rec = httptest.NewRecorder()
	SessionCurrent(logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBlobDownload(t *testing.T) {
	mem := memstore.New()
	_, err := mem.Upload(context.Background(), "lands/1_field.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	rec := serve(http.MethodGet, "/api/v1/blobs/*", BlobDownload(mem, logger.Nop()),
		httptest.NewRequest(http.MethodGet, "/api/v1/blobs/lands/1_field.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = serve(http.MethodGet, "/api/v1/blobs/*", BlobDownload(mem, logger.Nop()),
		httptest.NewRequest(http.MethodGet, "/api/v1/blobs/lands/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(http.MethodGet, "/api/v1/blobs/*", BlobDownload(mem, logger.Nop()),
		httptest.NewRequest(http.MethodGet, "/api/v1/blobs/lands/..%2Fsecret", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "png-bytes"))
}
