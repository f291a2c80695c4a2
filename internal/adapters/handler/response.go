// Package handler implements HTTP request handlers
package handler

import (
	"encoding/json"
	"net/http"
)

// APIResponse represents the standard response envelope for the
// health/status surface
type APIResponse struct {
	Code    int         `json:"code"`    // HTTP status code (200, 500, etc.)
	Message string      `json:"message"` // Human-readable message
	Data    interface{} `json:"data"`    // Actual payload (can be null)
}

// WriteJSON writes the standard envelope
func WriteJSON(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
