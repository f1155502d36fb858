// Package dataset defines the on-disk train timetable dataset and the
// operations that build and read it: normalizing raw API schedules, merging
// routes, partitioning them into category shards, and persisting JSON files.
package dataset

// Station is one entry of stations.json
type Station struct {
	StationID   string `json:"stationId"`
	StationName string `json:"stationName"`
	CityName    string `json:"cityName,omitempty"`
	CityCode    *int64 `json:"cityCode,omitempty"`
}

// Schedule is one scheduled trip on a route
type Schedule struct {
	TrainNo   string `json:"trainNo"`
	TrainType string `json:"trainType"`
	DepTime   string `json:"depTime"` // HH:MM, or "" when the source timestamp is malformed
	ArrTime   string `json:"arrTime"`
	Charge    int64  `json:"charge"` // adult fare in KRW; 0 means unknown
}

// Route is a directional station pair with its schedules
type Route struct {
	DepStationID   string     `json:"depStationId"`
	DepStationName string     `json:"depStationName"`
	ArrStationID   string     `json:"arrStationId"`
	ArrStationName string     `json:"arrStationName"`
	Schedules      []Schedule `json:"schedules"`
}

// Key returns the directional identity of the route
func (r Route) Key() string {
	return RouteKey(r.DepStationID, r.ArrStationID)
}

// RouteKey formats the identity of the ordered pair (dep, arr)
func RouteKey(depStationID, arrStationID string) string {
	return depStationID + "-" + arrStationID
}

// Clone returns a copy that shares no schedule storage with r
func (r Route) Clone() Route {
	out := r
	out.Schedules = append([]Schedule(nil), r.Schedules...)
	return out
}

// Metadata is metadata.json. It is recomputed fully on every run.
type Metadata struct {
	LastUpdated         string `json:"lastUpdated"`
	StationCount        int    `json:"stationCount"`
	RouteCount          int    `json:"routeCount"`
	KTXRouteCount       int    `json:"ktxRouteCount"`
	SRTRouteCount       int    `json:"srtRouteCount"`
	ITXRouteCount       int    `json:"itxRouteCount"`
	MugunghwaRouteCount int    `json:"mugunghwaRouteCount"`
}

// Category keys, also used in shard file names (routes-<key>.json)
const (
	CategoryKTX       = "ktx"
	CategorySRT       = "srt"
	CategoryITX       = "itx"
	CategoryMugunghwa = "mugunghwa"
)

// CategoryKeys lists the shard categories in output order
var CategoryKeys = []string{CategoryKTX, CategorySRT, CategoryITX, CategoryMugunghwa}

// File names inside the data directory
const (
	StationsFile = "stations.json"
	RoutesFile   = "routes.json"
	MetadataFile = "metadata.json"
	ManifestFile = "manifest.json"
)

// ShardFile returns the file name of a category shard
func ShardFile(category string) string {
	return "routes-" + category + ".json"
}
