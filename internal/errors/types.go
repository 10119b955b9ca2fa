package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "VALIDATION_ERROR"
	ErrorTypeClassificationMiss ErrorType = "CLASSIFICATION_MISS"
	ErrorTypeNoMatches          ErrorType = "NO_MATCHES"
	ErrorTypeUpstream           ErrorType = "UPSTREAM_ERROR"
	ErrorTypeAuth               ErrorType = "AUTH_ERROR"
	ErrorTypeInternal           ErrorType = "INTERNAL_ERROR"
)

// Client-facing messages. These are part of the HTTP contract.
const (
	MsgPromptRequired  = "Prompt is required"
	MsgPromptTooLong   = "Prompt is too long"
	MsgNoGenre         = "Could not derive genre from prompt"
	MsgInternal        = "Internal server error"
	MsgInvalidBody     = "Invalid request body"
	MsgSongIDRequired  = "No song ID provided"
	MsgRefreshRequired = "refresh_token required"
	MsgRefreshFailed   = "Failed to refresh token"
	MsgQueryRequired   = "Query parameter is required"
	MsgTrackIDRequired = "trackId required"
	MsgTrackNotFound   = "Track not found"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeUpstream:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status for err, 500 for anything that is not an AppError.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewClassificationMissError is returned when no allow-listed genre could be derived (400).
func NewClassificationMissError(err error) *AppError {
	return &AppError{
		Type:          ErrorTypeClassificationMiss,
		Message:       MsgNoGenre,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "GENRE_NOT_DERIVED",
		IsOperational: true,
		Recovery:      "Try describing the vibe differently.",
		Err:           err,
	}
}

// NewNoMatchesError is returned when the catalog has no artists for a genre (400).
func NewNoMatchesError(genre string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeNoMatches,
		Message:       NoArtistsMessage(genre),
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "NO_ARTISTS_FOUND",
		IsOperational: true,
		Recovery:      "Try another prompt.",
		Err:           err,
	}
}

// NewUpstreamError wraps a failure from an external provider.
func NewUpstreamError(provider string, statusCode int, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeUpstream,
		Message:       fmt.Sprintf("%s request failed", provider),
		StatusCode:    statusCode,
		ErrorCode:     "UPSTREAM_FAILURE",
		IsOperational: true,
		Recovery:      "Wait for the service to be available and try again.",
		Err:           err,
	}
}

// NewAuthError creates an OAuth flow error (400).
func NewAuthError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeAuth,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Log in again.",
		Err:           err,
	}
}

// NewInternalError creates a generic internal error (500). The cause is never sent to clients.
func NewInternalError(err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       MsgInternal,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "INTERNAL_ERROR",
		IsOperational: false,
		Err:           err,
	}
}

// NoArtistsMessage formats the client message for an empty artist result.
func NoArtistsMessage(genre string) string {
	return fmt.Sprintf("No artists found for genre '%s'", genre)
}
