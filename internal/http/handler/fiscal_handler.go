package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/mapper"
	"github.com/sanisidro/fiscal-api/internal/service"
	"go.uber.org/zap"
)

type FiscalHandler struct {
	importService *service.ImportService
	maxBodyBytes  int64
	errs          errorResponder
	logger        *zap.Logger
}

// NewFiscalHandler creates a FiscalHandler. maxBodyBytes caps the import
// request body; zero means no limit.
func NewFiscalHandler(importService *service.ImportService, maxBodyBytes int64, isDevelopment bool, logger *zap.Logger) *FiscalHandler {
	return &FiscalHandler{
		importService: importService,
		maxBodyBytes:  maxBodyBytes,
		errs:          errorResponder{logger: logger, isDevelopment: isDevelopment},
		logger:        logger,
	}
}

// Import godoc
// @Summary Import fiscales from CSV
// @Description Creates one account and one fiscal document per CSV row. Row failures are reported in details.
// @Tags Fiscales
// @Accept json
// @Produce json
// @Param request body domain.ImportFiscalesRequest true "CSV text with escuela_id and dni columns"
// @Success 200 {object} domain.ImportResult
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /api/v1/fiscales/import [post]
func (h *FiscalHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req domain.ImportFiscalesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.importService.ImportCSV(r.Context(), req.CSV)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get one imported fiscal
// @Tags Fiscales
// @Produce json
// @Param uid path string true "Account uid"
// @Success 200 {object} domain.FiscalDTO
// @Failure 401 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /api/v1/fiscales/{uid} [get]
func (h *FiscalHandler) Get(w http.ResponseWriter, r *http.Request) {
	fiscal, err := h.importService.GetFiscal(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToFiscalDTO(fiscal))
}

// List godoc
// @Summary List imported fiscales
// @Tags Fiscales
// @Produce json
// @Param limit query int false "Maximum number of documents (default 1000)"
// @Success 200 {object} domain.FiscalListResponse
// @Failure 401 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /api/v1/fiscales [get]
func (h *FiscalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	fiscales, err := h.importService.ListFiscales(r.Context(), limit)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToFiscalListResponse(fiscales))
}
