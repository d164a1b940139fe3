package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sanisidro/fiscal-api/internal/auth"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fieldName := toJSONFieldName(fe.Field())
			errs[fieldName] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: errs,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// respondMethodNotAllowed answers any method a route does not handle
func respondMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s Not Allowed", r.Method))
}

// MethodNotAllowed is the router's fallback for unsupported methods
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondMethodNotAllowed(w, r)
}

// NotFound is the router's fallback for unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound, "Route not found")
}

// errorResponder turns service and storage errors into API errors. The
// error message always goes into detail; details is development only.
type errorResponder struct {
	logger        *zap.Logger
	isDevelopment bool
}

func (e errorResponder) respond(w http.ResponseWriter, r *http.Request, err error) {
	var argErr *service.ArgumentError
	switch {
	case errors.As(err, &argErr):
		respondWithError(w, http.StatusBadRequest, argErr.Message)
	case errors.Is(err, service.ErrStorageNotConfigured):
		e.logger.Error("Blob storage not configured", zap.String("path", r.URL.Path))
		respondJSON(w, http.StatusInternalServerError, domain.APIError{
			Type:   domain.ErrorTypeStorageNotConfigured,
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
			Detail: err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Blob not found")
	case errors.Is(err, service.ErrFiscalNotFound):
		respondWithError(w, http.StatusNotFound, "Fiscal not found")
	case errors.Is(err, storage.ErrInvalidPathname):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		respondWithError(w, http.StatusConflict, "Blob already exists")
	case errors.Is(err, storage.ErrSigningUnsupported):
		respondWithError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, service.ErrContentTypeNotAllowed), errors.Is(err, service.ErrContentTypeMismatch):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	default:
		e.logger.Error("Error processing request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		apiErr := domain.APIError{
			Type:   domain.ErrorTypeInternal,
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
			Detail: "Error processing request: " + err.Error(),
		}
		if e.isDevelopment {
			apiErr.Details = err.Error()
		}
		respondJSON(w, http.StatusInternalServerError, apiErr)
	}
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusMethodNotAllowed:
		return domain.ErrorTypeMethodNotAllowed
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusRequestEntityTooLarge:
		return domain.ErrorTypePayloadTooLarge
	default:
		return domain.ErrorTypeInternal
	}
}
