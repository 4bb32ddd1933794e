// Package httputil maps domain errors onto JSON error bodies and parses shared query parameters.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/eventledger/internal/errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errorMapping describes how one sentinel is rendered. An empty message means the
// error text itself is returned to the client.
type errorMapping struct {
	sentinel error
	status   int
	code     string
	message  string
}

// First match wins, so order matters for errors that wrap more than one sentinel.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrInvalidOperation, http.StatusConflict, "invalid_operation", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource"},
}

func resolve(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.sentinel) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		return m.status, ErrorResponse{Error: m.code, Message: msg}
	}
	// internal details stay in the log
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}
}

func write(c *gin.Context, status int, body ErrorResponse) {
	body.RequestID = requestid.Get(c)
	c.JSON(status, body)
}

// HandleErrorGin writes the response for err. Server-side failures are logged at
// error level and client mistakes at warn. A nil err writes nothing.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	status, body := resolve(err)
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c, level, "request failed",
			slog.Int("status_code", status),
			slog.String("error_code", body.Error),
			slog.String("request_id", requestid.Get(c)),
			slog.Any("error", err),
		)
	}
	write(c, status, body)
}

// HandleBadRequestGin answers 400 for bodies or parameters that could not be decoded.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}
	write(c, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

// HandleValidationErrorGin answers 422 for requests that decoded but failed validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}
	write(c, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation_error", Message: err.Error()})
}
