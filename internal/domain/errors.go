package domain

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	Status  int               `json:"status"`
	Detail  string            `json:"detail,omitempty"`
	Details string            `json:"details,omitempty"` // error chain, development only
	Errors  map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"oneof":    "Must be one of the allowed values",
	"url":      "Must be a valid URL",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation           = "validation_error"
	ErrorTypeNotFound             = "not_found"
	ErrorTypeBadRequest           = "bad_request"
	ErrorTypeConflict             = "conflict"
	ErrorTypeUnauthorized         = "unauthorized"
	ErrorTypeForbidden            = "forbidden"
	ErrorTypeMethodNotAllowed     = "method_not_allowed"
	ErrorTypePayloadTooLarge      = "payload_too_large"
	ErrorTypeStorageNotConfigured = "storage_not_configured"
	ErrorTypeInternal             = "internal_error"
)
