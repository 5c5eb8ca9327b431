// Package common holds the request and response helpers shared by the API handlers.
package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteJSONResponse writes data as a JSON body with the given status code
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// the status line is already written, so an encoding failure can only be logged
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "status", statusCode, "error", err)
	}
}

// WriteErrorResponse writes an ErrorResponse carrying message and statusCode
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: message, Status: statusCode}, statusCode)
}
