package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter wires the read API routes
func NewRouter(reader DatasetReader, allowedOrigins []string) http.Handler {
	h := NewDatasetHandler(reader)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", h.GetHealth)

	r.Get("/api/metadata", h.GetMetadata)

	r.Get("/api/stations", h.GetStations)
	r.Get("/api/stations/{stationId}", h.GetStation)
	r.Get("/api/stations/{stationId}/routes", h.GetStationRoutes)

	r.Get("/api/routes/{category}", h.GetCategoryRoutes)
	r.Get("/api/routes/{depId}/{arrId}", h.GetRoute)

	return r
}
