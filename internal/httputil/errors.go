// Package httputil writes the API's JSON success and failure envelopes.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/coffeeshop/drinks/internal/validation"
)

// Default messages per status, matching what API clients already expect.
var statusMessages = map[int]string{
	http.StatusBadRequest:           "bad request",
	http.StatusUnauthorized:         "unauthorized",
	http.StatusForbidden:            "forbidden access",
	http.StatusNotFound:             "not found",
	http.StatusMethodNotAllowed:     "not allowed",
	http.StatusUnsupportedMediaType: "unsupported media type",
	http.StatusUnprocessableEntity:  "unprocessable",
	http.StatusInternalServerError:  "internal server error",
	http.StatusServiceUnavailable:   "service unavailable",
}

// StatusMessage returns the short message for status.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return http.StatusText(status)
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Success bool               `json:"success"`
	Error   int                `json:"error"`
	Message string             `json:"message"`
	Details []validation.Error `json:"details,omitempty"`
}

// WriteFailure writes the error envelope without logging.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = StatusMessage(status)
	}
	WriteJSON(w, status, ErrorResponse{Error: status, Message: message})
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, logFields ...any) {
	WriteFailure(w, status, "")

	logFields = append([]any{"status", status}, logFields...)
	logger.WarnContext(r.Context(), "HTTP error response", logFields...)
}

// WriteValidationError writes a 422 response listing each invalid field.
func WriteValidationError(w http.ResponseWriter, r *http.Request, validationErr validation.Errors) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   http.StatusUnprocessableEntity,
		Message: StatusMessage(http.StatusUnprocessableEntity),
		Details: validationErr,
	})

	logger.WarnContext(r.Context(), "Validation error", "errors", validationErr.Error())
}

// WriteInternalError writes a generic internal server error
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error, logFields ...any) {
	WriteFailure(w, http.StatusInternalServerError, "")

	logFields = append([]any{"error", err}, logFields...)
	logger.ErrorContext(r.Context(), "Internal server error", logFields...)
}

// WriteJSON writes a JSON response with proper error handling
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteSuccess writes a 200 OK response with JSON data
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}
