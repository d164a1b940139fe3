package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sanisidro/fiscal-api/internal/auth"
	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/http/handler"
	"github.com/sanisidro/fiscal-api/internal/http/middleware"
	"github.com/sanisidro/fiscal-api/internal/http/router"
	"github.com/sanisidro/fiscal-api/internal/repository"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"github.com/sanisidro/fiscal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "router-test-key"

func setupRouter(t *testing.T, withStorage bool) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		App:       config.AppConfig{Environment: "production", PublicURL: "http://localhost:8080"},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"https://admin.example.com"}, AllowedMethods: []string{"GET", "POST"}},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			ContentSecurityPolicy:     "default-src 'self'",
			BlobContentSecurityPolicy: "default-src 'none'; sandbox",
		},
	}

	tokens, err := auth.NewUploadTokens("router-secret")
	require.NoError(t, err)

	var store storage.BlobStore
	if withStorage {
		local, err := storage.NewLocalStorage(t.TempDir(), cfg.App.PublicURL, tokens, 1<<20)
		require.NoError(t, err)
		store = local
	}
	blobService := service.NewBlobService(store, tokens, service.BlobServiceConfig{
		SignedURLTTL:      time.Minute,
		TokenTTL:          time.Minute,
		AllowedImageTypes: []string{"image/png"},
		MaxImageSize:      1024,
	}, logger)

	db := testutil.SetupTestDB(t)
	importService := service.NewImportService(
		repository.NewAccountRepository(db),
		repository.NewFiscalRepository(db),
		&config.ImportConfig{},
		logger,
	)

	rt := router.NewRouter(
		cfg,
		logger,
		db,
		withStorage,
		auth.NewMiddleware(testAPIKey, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handler.NewBlobProxyHandler(blobService, 0, false, logger),
		handler.NewBlobHandler(blobService, 0, false, logger),
		handler.NewUploadHandler(blobService, false, logger),
		handler.NewFiscalHandler(importService, 1<<20, false, logger),
	)
	return rt.Setup()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	h := setupRouter(t, true)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage"`)
}

func TestRouter_ReadyWithoutStorage(t *testing.T) {
	h := setupRouter(t, false)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_BlobProxyPreflight(t *testing.T) {
	h := setupRouter(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/blob-proxy", nil)
	req.Header.Set("Origin", "https://mesa.example.org")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	w := serve(h, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://mesa.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,OPTIONS,PATCH,DELETE,POST,PUT", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestRouter_StandalonePreflight(t *testing.T) {
	h := setupRouter(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/put-json?filename=a.json", nil)
	req.Header.Set("Origin", "https://mesa.example.org")
	w := serve(h, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://mesa.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_BlobProxyRoundTrip(t *testing.T) {
	h := setupRouter(t, true)

	w := serve(h, httptest.NewRequest(http.MethodPost, "/api/blob-proxy",
		strings.NewReader(`{"pathname":"actas/1.txt","body":"hola"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(h, httptest.NewRequest(http.MethodGet, "/api/blob-proxy/head?pathname=actas/1.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/blobs/actas/1.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hola", w.Body.String())
	assert.Equal(t, "default-src 'none'; sandbox", w.Header().Get("Content-Security-Policy"))

	w = serve(h, httptest.NewRequest(http.MethodGet, "/api/list-blobs?prefix=actas/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "actas/1.txt")

	w = serve(h, httptest.NewRequest(http.MethodDelete, "/api/blob-proxy", strings.NewReader(`{"url":"actas/1.txt"}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_BlobProxyMethodNotAllowed(t *testing.T) {
	h := setupRouter(t, true)

	w := serve(h, httptest.NewRequest(http.MethodPatch, "/api/blob-proxy", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "Method PATCH Not Allowed")
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_StorageNotConfigured(t *testing.T) {
	h := setupRouter(t, false)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/blob-proxy", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "storage_not_configured")
}

func TestRouter_FiscalesRequireAPIKey(t *testing.T) {
	h := setupRouter(t, true)

	body := `{"csv":"escuela_id,dni\n5,123\n"}`
	w := serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/fiscales/import", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fiscales/import", strings.NewReader(body))
	req.Header.Set("x-api-key", testAPIKey)
	w = serve(h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"successCount":1`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/fiscales", nil)
	req.Header.Set("x-api-key", testAPIKey)
	w = serve(h, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"escuela_id":"5"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/fiscales/missing", nil)
	req.Header.Set("x-api-key", testAPIKey)
	w = serve(h, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	h := setupRouter(t, true)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
