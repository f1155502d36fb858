package models

import (
	"sort"

	"github.com/rail-timetable/collector/internal/dataset"
)

// FareRange summarizes the known fares of a route. Zero fares are unknown
// and excluded; Min and Max are 0 when no fare is known.
type FareRange struct {
	Min      int64  `json:"min"`
	Max      int64  `json:"max"`
	MinLabel string `json:"minLabel"`
	MaxLabel string `json:"maxLabel"`
}

// NewFareRange computes the fare range of a schedule list
func NewFareRange(schedules []dataset.Schedule) FareRange {
	min := dataset.ValidMinCharge(schedules)
	max := dataset.ValidMaxCharge(schedules)
	return FareRange{
		Min:      min,
		Max:      max,
		MinLabel: dataset.FormatCharge(min),
		MaxLabel: dataset.FormatCharge(max),
	}
}

// RouteSummary is a route without its schedules, used in lists
type RouteSummary struct {
	DepStationID   string    `json:"depStationId"`
	DepStationName string    `json:"depStationName"`
	ArrStationID   string    `json:"arrStationId"`
	ArrStationName string    `json:"arrStationName"`
	ScheduleCount  int       `json:"scheduleCount"`
	TrainTypes     []string  `json:"trainTypes"`
	FirstDeparture string    `json:"firstDeparture,omitempty"`
	LastDeparture  string    `json:"lastDeparture,omitempty"`
	Fare           FareRange `json:"fare"`
}

// NewRouteSummary summarizes a route
func NewRouteSummary(r dataset.Route) RouteSummary {
	summary := RouteSummary{
		DepStationID:   r.DepStationID,
		DepStationName: r.DepStationName,
		ArrStationID:   r.ArrStationID,
		ArrStationName: r.ArrStationName,
		ScheduleCount:  len(r.Schedules),
		TrainTypes:     TrainTypes(r.Schedules),
		Fare:           NewFareRange(r.Schedules),
	}

	// schedules with a malformed source timestamp have no depTime
	for _, s := range r.Schedules {
		if s.DepTime == "" {
			continue
		}
		if summary.FirstDeparture == "" || s.DepTime < summary.FirstDeparture {
			summary.FirstDeparture = s.DepTime
		}
		if s.DepTime > summary.LastDeparture {
			summary.LastDeparture = s.DepTime
		}
	}
	return summary
}

// RouteDetail is a route with its schedules ordered by departure time
type RouteDetail struct {
	RouteSummary
	Schedules []dataset.Schedule `json:"schedules"`
}

// NewRouteDetail builds the detail view of a route. The route itself is not
// modified.
func NewRouteDetail(r dataset.Route) RouteDetail {
	schedules := append([]dataset.Schedule(nil), r.Schedules...)
	sort.SliceStable(schedules, func(i, j int) bool {
		return schedules[i].DepTime < schedules[j].DepTime
	})
	if schedules == nil {
		schedules = []dataset.Schedule{}
	}
	return RouteDetail{
		RouteSummary: NewRouteSummary(r),
		Schedules:    schedules,
	}
}

// TrainTypes returns the distinct train types of a schedule list in
// first-seen order
func TrainTypes(schedules []dataset.Schedule) []string {
	seen := make(map[string]struct{})
	types := []string{}
	for _, s := range schedules {
		if _, ok := seen[s.TrainType]; ok {
			continue
		}
		seen[s.TrainType] = struct{}{}
		types = append(types, s.TrainType)
	}
	return types
}
