package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// writeCached writes a 200 response that clients may cache. The dataset
// changes once per collector run.
func writeCached(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Cache-Control", "public, max-age=300, stale-while-revalidate=60")
	w.Header().Set("Vary", "Accept-Encoding")
	writeJSON(w, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}
