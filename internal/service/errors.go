package service

import (
	"errors"

	"github.com/sanisidro/fiscal-api/internal/domain"
)

// Common service errors
var (
	// ErrInvalidArgument is matched by every ArgumentError
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAccountExists is returned by account stores for a duplicate email
	ErrAccountExists = domain.ErrAccountExists

	// ErrFiscalNotFound is returned by fiscal stores for an unknown uid
	ErrFiscalNotFound = domain.ErrFiscalNotFound

	// ErrStorageNotConfigured is returned when no blob store could be initialised
	ErrStorageNotConfigured = errors.New("Blob Storage not configured: storage credentials are missing")

	// ErrContentTypeNotAllowed is returned when a client upload has a disallowed type
	ErrContentTypeNotAllowed = errors.New("content type not allowed")

	// ErrUploadTooLarge is returned when an upload exceeds its token's size limit
	ErrUploadTooLarge = errors.New("upload exceeds maximum size")

	// ErrContentTypeMismatch is returned when an upload does not match its token
	ErrContentTypeMismatch = errors.New("content type does not match upload token")
)

// ArgumentError carries a user-facing message for a rejected request
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgument(msg string) error {
	return &ArgumentError{Message: msg}
}
