package sampler

import (
	"strings"

	"github.com/rail-timetable/collector/internal/dataset"
)

// IsHub reports whether a station name matches one of the hub names. A
// station matches when its name contains a hub name, or when a hub name
// contains the station name with its first "역" removed. A name that is
// empty after stripping matches nothing.
func IsHub(stationName string, hubNames []string) bool {
	stripped := strings.Replace(stationName, "역", "", 1)
	for _, hub := range hubNames {
		if hub == "" {
			continue
		}
		if strings.Contains(stationName, hub) {
			return true
		}
		if stripped != "" && strings.Contains(hub, stripped) {
			return true
		}
	}
	return false
}

// ClassifyHubs splits stations into hubs and non-hubs, preserving input
// order. Hubs are deduplicated by station id.
func ClassifyHubs(stations []dataset.Station, hubNames []string) (hubs, nonHubs []dataset.Station) {
	seen := make(map[string]struct{})
	for _, s := range stations {
		if !IsHub(s.StationName, hubNames) {
			nonHubs = append(nonHubs, s)
			continue
		}
		if _, dup := seen[s.StationID]; dup {
			continue
		}
		seen[s.StationID] = struct{}{}
		hubs = append(hubs, s)
	}
	return hubs, nonHubs
}
