package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sanisidro/fiscal-api/internal/http/handler"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBlobHandler_ListBlobs_LimitedToTen(t *testing.T) {
	svc := newTestBlobService(t)
	h := handler.NewBlobHandler(svc, 0, true, zap.NewNop())

	for i := 0; i < 12; i++ {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/put-json?filename=data/%02d.json", i), strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		h.PutJSON(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/list-blobs?prefix=data/", nil)
	w := httptest.NewRecorder()
	h.ListBlobs(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list storage.ListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Blobs, 10)
	assert.True(t, list.HasMore)
}

func TestBlobHandler_HeadBlob(t *testing.T) {
	h := handler.NewBlobHandler(newTestBlobService(t), 0, true, zap.NewNop())

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing pathname", "/api/head-blob", http.StatusBadRequest},
		{"not found", "/api/head-blob?pathname=missing.json", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HeadBlob(w, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestBlobHandler_PutJSON(t *testing.T) {
	h := handler.NewBlobHandler(newTestBlobService(t), 0, true, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/put-json?filename=resultados.json", strings.NewReader("{\n  \"mesa\": 12\n}"))
	w := httptest.NewRecorder()
	h.PutJSON(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var blob storage.Blob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &blob))
	assert.Equal(t, "resultados.json", blob.Pathname)
	assert.Equal(t, "application/json", blob.ContentType)
	assert.Equal(t, int64(len(`{"mesa":12}`)), blob.Size)

	// Existing documents are replaced
	req = httptest.NewRequest(http.MethodPost, "/api/put-json?filename=resultados.json", strings.NewReader(`{"mesa":13}`))
	w = httptest.NewRecorder()
	h.PutJSON(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.HeadBlob(w, httptest.NewRequest(http.MethodGet, "/api/head-blob?pathname=resultados.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBlobHandler_PutJSON_BadRequests(t *testing.T) {
	h := handler.NewBlobHandler(newTestBlobService(t), 0, true, zap.NewNop())

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"missing filename", "/api/put-json", `{"a":1}`},
		{"empty body", "/api/put-json?filename=a.json", ""},
		{"invalid json", "/api/put-json?filename=a.json", `{"a":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.PutJSON(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
