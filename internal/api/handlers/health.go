package handlers

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status       string    `json:"status"`
	Dataset      string    `json:"dataset"`
	LastUpdated  string    `json:"lastUpdated,omitempty"`
	StationCount int       `json:"stationCount"`
	RouteCount   int       `json:"routeCount"`
	Timestamp    time.Time `json:"timestamp"`
}

// GetHealth handles GET /health
// Reports 503 until a dataset with metadata.json is present
func (h *DatasetHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	meta, ok := h.reader.Metadata()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Dataset:   "missing",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Dataset:      "loaded",
		LastUpdated:  meta.LastUpdated,
		StationCount: meta.StationCount,
		RouteCount:   meta.RouteCount,
		Timestamp:    time.Now().UTC(),
	})
}
