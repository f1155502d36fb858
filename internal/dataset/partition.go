package dataset

import (
	"strings"
	"time"
)

// Category assigns schedules to a shard by substring match on trainType
type Category struct {
	Key     string
	Matches []string
}

// Match reports whether a train type belongs to the category
func (c Category) Match(trainType string) bool {
	for _, m := range c.Matches {
		if strings.Contains(trainType, m) {
			return true
		}
	}
	return false
}

// Shard is the filtered route list of one category
type Shard struct {
	Category string
	Routes   []Route
}

// ScheduleCount returns the number of schedules in the shard
func (s Shard) ScheduleCount() int {
	n := 0
	for _, r := range s.Routes {
		n += len(r.Schedules)
	}
	return n
}

// Partition filters routes into one shard per category. Each route keeps
// only the matching schedules and is dropped from a shard when none match.
// The input is never modified; the output preserves input order, so the
// same input always produces the same shards.
func Partition(routes []Route, categories []Category) []Shard {
	shards := make([]Shard, 0, len(categories))
	for _, c := range categories {
		shard := Shard{Category: c.Key, Routes: []Route{}}
		for _, r := range routes {
			var matched []Schedule
			for _, sc := range r.Schedules {
				if c.Match(sc.TrainType) {
					matched = append(matched, sc)
				}
			}
			if len(matched) == 0 {
				continue
			}
			filtered := r
			filtered.Schedules = matched
			shard.Routes = append(shard.Routes, filtered)
		}
		shards = append(shards, shard)
	}
	return shards
}

// BuildMetadata summarizes a run
func BuildMetadata(now time.Time, stationCount, routeCount int, shards []Shard) Metadata {
	meta := Metadata{
		LastUpdated:  now.UTC().Format("2006-01-02T15:04:05.000Z"),
		StationCount: stationCount,
		RouteCount:   routeCount,
	}
	for _, s := range shards {
		switch s.Category {
		case CategoryKTX:
			meta.KTXRouteCount = len(s.Routes)
		case CategorySRT:
			meta.SRTRouteCount = len(s.Routes)
		case CategoryITX:
			meta.ITXRouteCount = len(s.Routes)
		case CategoryMugunghwa:
			meta.MugunghwaRouteCount = len(s.Routes)
		}
	}
	return meta
}
