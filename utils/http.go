package utils

import (
	"encoding/json"
	"net/http"

	"github.com/upb/jobtracker/internal/shared"
)

// Codes for responses that do not come from a structured auth error
const (
	CodeInternalError = "internal_error"
	CodeNotFound      = "not_found"
	CodeUnavailable   = "unavailable"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response with optional data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteError writes an error body with the given status and code
func WriteError(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// WriteInternalServerError writes a 500 response that carries no internal detail
func WriteInternalServerError(w http.ResponseWriter) error {
	return WriteError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error")
}

// WriteAuthError writes err using its declared status and code.
// 401 responses carry a Bearer challenge. Errors that are not *shared.AuthError
// become a generic 500.
func WriteAuthError(w http.ResponseWriter, err error) error {
	authErr, ok := shared.AsAuthError(err)
	if !ok {
		return WriteInternalServerError(w)
	}

	status := shared.StatusOf(authErr)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", BearerChallenge(authErr.Code))
	}
	return WriteError(w, status, string(authErr.Code), authErr.Message)
}

// BearerChallenge builds the WWW-Authenticate value for a 401 code
func BearerChallenge(code shared.ErrorCode) string {
	if code == shared.CodeMissingToken {
		return `Bearer realm="jobtracker"`
	}
	return `Bearer realm="jobtracker", error="invalid_token"`
}
