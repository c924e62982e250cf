package errors

import (
	"errors"
	"net/http"

	"userauth/internal/auth"
	"userauth/internal/service"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MessageResponse is the plain body used by the public endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown users map to 403
// so responses do not reveal which emails are registered.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, service.ErrAlreadyRegistered):
		return NewHTTPError(http.StatusBadRequest, "email already registered", "EMAIL_ALREADY_REGISTERED")
	case errors.Is(err, service.ErrNotFound):
		return NewHTTPError(http.StatusForbidden, http.StatusText(http.StatusForbidden), "FORBIDDEN")
	case errors.Is(err, auth.ErrPasswordTooLong):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "PASSWORD_TOO_LONG")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
