// Package collector builds the national station list from the per-city
// station listings.
package collector

import (
	"context"
	"log"

	"github.com/rail-timetable/collector/internal/dataset"
	"github.com/rail-timetable/collector/internal/tago"
)

// Source lists cities and the stations of one city. *tago.Client
// satisfies it.
type Source interface {
	Cities(ctx context.Context) []tago.City
	Stations(ctx context.Context, cityCode int64) []tago.Station
}

// Collector gathers stations across every city
type Collector struct {
	source Source
}

// New creates a collector
func New(source Source) *Collector {
	return &Collector{source: source}
}

// Collect returns every distinct station in city order. A station listed
// under several cities keeps the first city it was seen in. Failed or empty
// listings are skipped; only context cancellation is returned as an error.
func (c *Collector) Collect(ctx context.Context) ([]dataset.Station, error) {
	cities := c.source.Cities(ctx)
	log.Printf("Collector: %d cities", len(cities))

	seen := make(map[string]struct{})
	stations := []dataset.Station{}

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return stations, err
		}

		code, ok := city.CityCode.Int()
		if !ok {
			log.Printf("Collector: skipping city %q with invalid code %q", city.CityName, city.CityCode)
			continue
		}

		listed := c.source.Stations(ctx, code)
		for _, s := range listed {
			if s.NodeID == "" {
				continue
			}
			if _, dup := seen[s.NodeID]; dup {
				continue
			}
			seen[s.NodeID] = struct{}{}

			cityCode := code
			stations = append(stations, dataset.Station{
				StationID:   s.NodeID,
				StationName: s.NodeName,
				CityName:    city.CityName,
				CityCode:    &cityCode,
			})
		}

		if len(listed) > 0 {
			log.Printf("Collector: %s: %d stations", city.CityName, len(listed))
		}
	}

	if err := ctx.Err(); err != nil {
		return stations, err
	}

	log.Printf("Collector: %d stations total", len(stations))
	return stations, nil
}
