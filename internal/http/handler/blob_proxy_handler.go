package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

// BlobProxyHandler serves the combined blob proxy endpoint
type BlobProxyHandler struct {
	blobService  *service.BlobService
	maxBodyBytes int64
	errs         errorResponder
	logger       *zap.Logger
}

// NewBlobProxyHandler creates a new BlobProxyHandler. maxBodyBytes bounds
// JSON request bodies; zero disables the limit.
func NewBlobProxyHandler(blobService *service.BlobService, maxBodyBytes int64, isDevelopment bool, logger *zap.Logger) *BlobProxyHandler {
	return &BlobProxyHandler{
		blobService:  blobService,
		maxBodyBytes: maxBodyBytes,
		errs:         errorResponder{logger: logger, isDevelopment: isDevelopment},
		logger:       logger,
	}
}

// Proxy dispatches on the request method
func (h *BlobProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Put(w, r)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		respondMethodNotAllowed(w, r)
	}
}

// List godoc
// @Summary List blobs
// @Description Lists one page of blobs, optionally filtered by pathname prefix
// @Tags Blobs
// @Produce json
// @Param prefix query string false "Pathname prefix"
// @Param limit query int false "Page size (max 1000)"
// @Param cursor query string false "Cursor returned by the previous page"
// @Success 200 {object} storage.ListResult
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/blob-proxy [get]
func (h *BlobProxyHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Prefix: r.URL.Query().Get("prefix"),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}

	result, err := h.blobService.List(r.Context(), opts)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Head godoc
// @Summary Get blob metadata
// @Tags Blobs
// @Produce json
// @Param pathname query string true "Blob pathname"
// @Success 200 {object} storage.Blob
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/blob-proxy/head [get]
func (h *BlobProxyHandler) Head(w http.ResponseWriter, r *http.Request) {
	pathname := r.URL.Query().Get("pathname")
	if pathname == "" {
		respondWithError(w, http.StatusBadRequest, "Pathname is required")
		return
	}

	blob, err := h.blobService.Head(r.Context(), pathname)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, blob)
}

// Put godoc
// @Summary Store a blob or request a signed upload URL
// @Description With a body the content is stored at pathname. Without a body a
// @Description signed upload target is returned and options.contentLength is required.
// @Tags Blobs
// @Accept json
// @Produce json
// @Param request body domain.BlobPutRequest true "Blob to store"
// @Success 200 {object} storage.Blob "Stored blob; a storage.SignedUpload when the body is empty"
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/blob-proxy [post]
func (h *BlobProxyHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req domain.BlobPutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Pathname == "" {
		respondWithError(w, http.StatusBadRequest, "Pathname is required")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	content, ok := bodyContent(req.Body)
	if !ok {
		signed, err := h.blobService.SignUpload(r.Context(), req.Pathname, req.Options)
		if err != nil {
			h.errs.respond(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, signed)
		return
	}

	blob, err := h.blobService.Put(r.Context(), req.Pathname, bytes.NewReader(content), req.Options)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, blob)
}

// Delete godoc
// @Summary Delete a blob
// @Tags Blobs
// @Accept json
// @Param request body domain.BlobDeleteRequest true "Blob URL or pathname"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/blob-proxy [delete]
func (h *BlobProxyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req domain.BlobDeleteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "URL is required")
		return
	}

	if err := h.blobService.Delete(r.Context(), req.URL); err != nil {
		h.errs.respond(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bodyContent returns the bytes to store for a proxied put. Strings are stored
// verbatim, any other JSON value as its JSON encoding. A missing, null or
// empty string body reports false.
func bodyContent(raw json.RawMessage) ([]byte, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
			return nil, false
		}
		return []byte(s), true
	}
	return trimmed, true
}
