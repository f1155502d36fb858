package models

import "github.com/rail-timetable/collector/internal/dataset"

// StationDetail is a station with the routes departing from it
type StationDetail struct {
	dataset.Station
	RouteCount int            `json:"routeCount"`
	Routes     []RouteSummary `json:"routes"`
}
