// Package api holds the JSON error envelope and response helpers shared by
// the HTTP surfaces.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Awhitter/spanish1/internal/domain"
)

// MaxBodyBytes caps request bodies, imports included
const MaxBodyBytes = 4 << 20

// Error codes
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeValidation     = "VALIDATION_FAILED"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeConflict       = "CONFLICT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
	CodeNotImplemented = "NOT_CONFIGURED"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// FromError maps a domain error to a status code and envelope.
func FromError(err error) (int, *APIError) {
	var vErr *domain.ValidationError
	var apiErr *APIError

	switch {
	case errors.As(err, &apiErr):
		return http.StatusBadRequest, apiErr
	case errors.As(err, &vErr):
		return http.StatusBadRequest, NewAPIError(CodeValidation, "invalid exercise").WithDetails(vErr.Problems).WithCause(err)
	case errors.Is(err, domain.ErrExerciseNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, NewAPIError(CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrExerciseResolved),
		errors.Is(err, domain.ErrExerciseUnresolved),
		errors.Is(err, domain.ErrNoCurrentExercise):
		return http.StatusConflict, NewAPIError(CodeConflict, err.Error())
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, NewAPIError(CodeRateLimited, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, NewAPIError(CodeUnauthorized, "unauthorized").WithCause(err)
	case errors.Is(err, domain.ErrAuthNotConfigured):
		return http.StatusNotImplemented, NewAPIError(CodeNotImplemented, err.Error())
	case errors.Is(err, domain.ErrTransport):
		return http.StatusServiceUnavailable, NewAPIError(CodeUnavailable, "backing service unavailable").WithCause(err)
	default:
		return http.StatusInternalServerError, NewAPIError(CodeInternal, "internal server error").WithCause(err)
	}
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
	}

	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}

	if requestID := w.Header().Get("X-Request-ID"); requestID != "" {
		logAttrs = append(logAttrs, "request_id", requestID)
	}

	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else if statusCode >= 400 {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteErr maps err with FromError and writes it
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := FromError(err)
	WriteError(w, r, status, apiErr)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// DecodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return NewAPIError(CodeBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// Helper functions for common responses
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError(CodeBadRequest, message))
}

func NotFound(w http.ResponseWriter, r *http.Request, resource string) {
	WriteError(w, r, http.StatusNotFound, NewAPIError(CodeNotFound, resource+" not found"))
}

func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, NewAPIError(CodeUnauthorized, message))
}

func InternalError(w http.ResponseWriter, r *http.Request, message string, cause error) {
	WriteError(w, r, http.StatusInternalServerError, NewAPIError(CodeInternal, message).WithCause(cause))
}
