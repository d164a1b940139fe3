package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

// UploadHandler serves client-side uploads and locally stored blob content
type UploadHandler struct {
	blobService *service.BlobService
	errs        errorResponder
	logger      *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(blobService *service.BlobService, isDevelopment bool, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		blobService: blobService,
		errs:        errorResponder{logger: logger, isDevelopment: isDevelopment},
		logger:      logger,
	}
}

// UploadImage godoc
// @Summary Client image upload token exchange
// @Description Issues a client upload token for an image, or records that a client upload finished
// @Tags Uploads
// @Accept json
// @Produce json
// @Param request body domain.ClientUploadRequest true "Token request or completion event"
// @Success 200 {object} domain.GenerateClientTokenResponse
// @Success 200 {object} domain.UploadCompletedResponse
// @Failure 400 {object} domain.APIError
// @Failure 405 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/upload-image [post]
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondMethodNotAllowed(w, r)
		return
	}

	var req domain.ClientUploadRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	switch req.Type {
	case domain.ClientUploadGenerateToken:
		h.generateClientToken(w, r, req.Payload)
	case domain.ClientUploadCompleted:
		h.uploadCompleted(w, r, req.Payload)
	}
}

func (h *UploadHandler) generateClientToken(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var payload domain.GenerateClientTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondValidationError(w, err)
		return
	}

	token, err := h.blobService.GenerateClientToken(r.Context(), payload)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, domain.GenerateClientTokenResponse{
		Type:        domain.ClientUploadGenerateToken,
		ClientToken: token.Token,
		UploadURL:   token.UploadURL,
		ExpiresAt:   token.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *UploadHandler) uploadCompleted(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var payload domain.UploadCompletedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondValidationError(w, err)
		return
	}

	var blob storage.Blob
	if err := json.Unmarshal(payload.Blob, &blob); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid blob in payload")
		return
	}

	h.blobService.UploadCompleted(r.Context(), blob, payload.TokenPayload)

	respondJSON(w, http.StatusOK, domain.UploadCompletedResponse{
		Type:     domain.ClientUploadCompleted,
		Response: domain.ClientUploadCompletedResult,
	})
}

// RedeemUpload godoc
// @Summary Upload content with an upload token
// @Description Stores the raw request body at the pathname bound to the token. Only used by the local storage backend.
// @Tags Uploads
// @Accept octet-stream
// @Produce json
// @Param token query string true "Upload token"
// @Success 200 {object} storage.Blob
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /api/blob-proxy/upload [put]
func (h *UploadHandler) RedeemUpload(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Upload token is required")
		return
	}

	blob, err := h.blobService.RedeemUpload(r.Context(), token, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, blob)
}

// inlineTypes may be rendered by the browser as stored. Any other type is
// served as an attachment.
var inlineTypes = map[string]bool{
	"application/json": true,
	"application/pdf":  true,
	"text/csv":         true,
	"text/plain":       true,
}

func servableInline(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case mediaType == "image/svg+xml":
		return false
	case strings.HasPrefix(mediaType, "image/"),
		strings.HasPrefix(mediaType, "audio/"),
		strings.HasPrefix(mediaType, "video/"):
		return true
	}
	return inlineTypes[mediaType]
}

// ServeBlob godoc
// @Summary Download a locally stored blob
// @Tags Blobs
// @Produce octet-stream
// @Param pathname path string true "Blob pathname"
// @Param download query string false "Set to 1 to download as attachment"
// @Success 200 {file} file
// @Failure 404 {object} domain.APIError
// @Router /blobs/{pathname} [get]
func (h *UploadHandler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	pathname := chi.URLParam(r, "*")
	if pathname == "" {
		respondWithError(w, http.StatusNotFound, "Blob not found")
		return
	}

	content, blob, err := h.blobService.Open(r.Context(), pathname)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}
	defer content.Close()

	contentType := blob.ContentType
	disposition := blob.ContentDisposition
	if !servableInline(contentType) {
		// Markup and script must not render in the API origin
		contentType = "application/octet-stream"
		disposition = fmt.Sprintf("attachment; filename=%q", path.Base(blob.Pathname))
	}
	if r.URL.Query().Get("download") == "1" {
		disposition = fmt.Sprintf("attachment; filename=%q", path.Base(blob.Pathname))
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	if blob.CacheControl != "" {
		w.Header().Set("Cache-Control", blob.CacheControl)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("Failed to stream blob",
			zap.String("pathname", blob.Pathname),
			zap.Error(err),
		)
	}
}
