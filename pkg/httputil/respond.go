package httputil

import (
	"encoding/json"
	"net/http"
)

// ContextKey is the type for values middleware stores in request contexts.
type ContextKey string

// RequestIDCtxKey carries the per-request ID set by the RequestID
// middleware and read by the logger.
const RequestIDCtxKey ContextKey = "RequestID"

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Error writes a JSON error body with the given status code.
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, map[string]string{"error": message})
}

// BindOrError decodes the JSON request body into dst, responding with
// 400 Bad Request on failure.
func BindOrError(r *http.Request, w http.ResponseWriter, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return err
	}
	return nil
}
