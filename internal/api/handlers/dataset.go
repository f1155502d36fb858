package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rail-timetable/collector/internal/api/models"
	"github.com/rail-timetable/collector/internal/dataset"
)

// DatasetReader defines the read operations on a dataset directory.
// *dataset.Loader satisfies it.
type DatasetReader interface {
	Stations() []dataset.Station
	Station(stationID string) (dataset.Station, bool)
	Metadata() (dataset.Metadata, bool)
	Routes(category string) ([]dataset.Route, error)
	GeneralRoutes() []dataset.Route
	Route(depStationID, arrStationID string) (dataset.Route, bool)
	RouteInView(category, depStationID, arrStationID string) (dataset.Route, bool)
	RoutesFrom(stationID string) []dataset.Route
}

// DatasetHandler handles HTTP requests for stations and routes
type DatasetHandler struct {
	reader DatasetReader
}

// NewDatasetHandler creates a new handler with the given reader
func NewDatasetHandler(reader DatasetReader) *DatasetHandler {
	return &DatasetHandler{reader: reader}
}

// StationsResponse is the JSON response for GET /api/stations
type StationsResponse struct {
	Stations []dataset.Station `json:"stations"`
	Count    int               `json:"count"`
}

// RoutesResponse is the JSON response for route lists
type RoutesResponse struct {
	Category string                `json:"category,omitempty"`
	Routes   []models.RouteSummary `json:"routes"`
	Count    int                   `json:"count"`
}

// GetMetadata handles GET /api/metadata
func (h *DatasetHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.reader.Metadata()
	if !ok {
		writeError(w, http.StatusNotFound, "Dataset metadata not available", nil)
		return
	}
	writeCached(w, meta)
}

// GetStations handles GET /api/stations
// Optional ?city= filters by city name
func (h *DatasetHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	stations := []dataset.Station{}
	for _, s := range h.reader.Stations() {
		if city != "" && s.CityName != city {
			continue
		}
		stations = append(stations, s)
	}

	writeCached(w, StationsResponse{Stations: stations, Count: len(stations)})
}

// GetStation handles GET /api/stations/{stationId}
// Returns the station with a summary of every route departing from it
func (h *DatasetHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	station, ok := h.reader.Station(stationID)
	if !ok {
		writeError(w, http.StatusNotFound, "Station not found", map[string]interface{}{
			"stationId": stationID,
		})
		return
	}
	writeCached(w, h.stationDetail(station))
}

// GetStationRoutes handles GET /api/stations/{stationId}/routes
func (h *DatasetHandler) GetStationRoutes(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	if _, ok := h.reader.Station(stationID); !ok {
		writeError(w, http.StatusNotFound, "Station not found", map[string]interface{}{
			"stationId": stationID,
		})
		return
	}

	summaries := summarize(h.reader.RoutesFrom(stationID))
	writeCached(w, RoutesResponse{Routes: summaries, Count: len(summaries)})
}

// GetCategoryRoutes handles GET /api/routes/{category}
// category is one of ktx, srt, itx, mugunghwa, or general (itx + mugunghwa)
func (h *DatasetHandler) GetCategoryRoutes(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var routes []dataset.Route
	if category == dataset.GeneralCategory {
		routes = h.reader.GeneralRoutes()
	} else {
		var err error
		routes, err = h.reader.Routes(category)
		if errors.Is(err, dataset.ErrUnknownCategory) {
			writeError(w, http.StatusNotFound, "Unknown category", map[string]interface{}{
				"category": category,
				"valid":    validCategories(),
			})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load routes", map[string]interface{}{
				"internal": err.Error(),
			})
			return
		}
	}

	summaries := summarize(routes)
	writeCached(w, RoutesResponse{Category: category, Routes: summaries, Count: len(summaries)})
}

// GetRoute handles GET /api/routes/{depId}/{arrId}
// Looks up the merged route across all categories; ?category= restricts the
// lookup to one shard or to the general view
func (h *DatasetHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	depID := chi.URLParam(r, "depId")
	arrID := chi.URLParam(r, "arrId")
	category := r.URL.Query().Get("category")

	var (
		route dataset.Route
		ok    bool
	)
	if category != "" {
		if !isValidCategory(category) {
			writeError(w, http.StatusNotFound, "Unknown category", map[string]interface{}{
				"category": category,
				"valid":    validCategories(),
			})
			return
		}
		route, ok = h.reader.RouteInView(category, depID, arrID)
	} else {
		route, ok = h.reader.Route(depID, arrID)
	}

	if !ok {
		writeError(w, http.StatusNotFound, "Route not found", map[string]interface{}{
			"depStationId": depID,
			"arrStationId": arrID,
		})
		return
	}
	writeCached(w, models.NewRouteDetail(route))
}

func (h *DatasetHandler) stationDetail(station dataset.Station) models.StationDetail {
	routes := summarize(h.reader.RoutesFrom(station.StationID))
	return models.StationDetail{
		Station:    station,
		RouteCount: len(routes),
		Routes:     routes,
	}
}

// validCategories lists the category values accepted by the route endpoints
func validCategories() []string {
	return append(append([]string{}, dataset.CategoryKeys...), dataset.GeneralCategory)
}

func isValidCategory(category string) bool {
	for _, c := range validCategories() {
		if c == category {
			return true
		}
	}
	return false
}

func summarize(routes []dataset.Route) []models.RouteSummary {
	out := make([]models.RouteSummary, 0, len(routes))
	for _, r := range routes {
		out = append(out, models.NewRouteSummary(r))
	}
	return out
}
