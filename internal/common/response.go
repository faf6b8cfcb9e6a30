package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the single error payload shape every endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v as the response body. Encoding failures after the header has
// been written are unrecoverable and ignored.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders the canonical error envelope.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{Code: code, Message: message, Details: details},
	})
}

// JSONAppError renders an AppError, falling back to the given status when the
// error carries none.
func JSONAppError(w http.ResponseWriter, e *AppError, fallbackStatus int) {
	if e == nil {
		JSONError(w, fallbackStatus, "INTERNAL", "internal error", nil)
		return
	}
	JSONError(w, e.Status(fallbackStatus), e.Code, e.Message, e.Details)
}
