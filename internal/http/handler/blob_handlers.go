package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

// BlobHandler serves the single-purpose blob endpoints
type BlobHandler struct {
	blobService  *service.BlobService
	maxBodyBytes int64
	errs         errorResponder
	logger       *zap.Logger
}

// NewBlobHandler creates a new BlobHandler
func NewBlobHandler(blobService *service.BlobService, maxBodyBytes int64, isDevelopment bool, logger *zap.Logger) *BlobHandler {
	return &BlobHandler{
		blobService:  blobService,
		maxBodyBytes: maxBodyBytes,
		errs:         errorResponder{logger: logger, isDevelopment: isDevelopment},
		logger:       logger,
	}
}

// ListBlobs godoc
// @Summary List the first blobs under a prefix
// @Tags Blobs
// @Produce json
// @Param prefix query string false "Pathname prefix"
// @Success 200 {object} storage.ListResult
// @Failure 500 {object} domain.APIError
// @Router /api/list-blobs [get]
func (h *BlobHandler) ListBlobs(w http.ResponseWriter, r *http.Request) {
	result, err := h.blobService.List(r.Context(), storage.ListOptions{
		Prefix: r.URL.Query().Get("prefix"),
		Limit:  service.StandaloneListLimit,
	})
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HeadBlob godoc
// @Summary Get blob metadata
// @Tags Blobs
// @Produce json
// @Param pathname query string true "Blob pathname"
// @Success 200 {object} storage.Blob
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/head-blob [get]
func (h *BlobHandler) HeadBlob(w http.ResponseWriter, r *http.Request) {
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

// PutJSON godoc
// @Summary Store a JSON document
// @Description Stores the request body as a public application/json blob named filename
// @Tags Blobs
// @Accept json
// @Produce json
// @Param filename query string true "Blob pathname"
// @Param request body object true "JSON document"
// @Success 200 {object} storage.Blob
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/put-json [post]
func (h *BlobHandler) PutJSON(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		respondWithError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	var body io.Reader = r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		respondWithError(w, http.StatusBadRequest, "Request body is required")
		return
	}

	var doc bytes.Buffer
	if err := json.Compact(&doc, raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	blob, err := h.blobService.PutJSON(r.Context(), filename, doc.Bytes())
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, blob)
}
