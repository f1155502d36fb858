package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rail-timetable/collector/internal/dataset"
)

func schedule(trainNo, trainType, dep string, charge int64) dataset.Schedule {
	return dataset.Schedule{TrainNo: trainNo, TrainType: trainType, DepTime: dep, ArrTime: "23:59", Charge: charge}
}

// newTestServer writes a small dataset and serves it through the real loader
func newTestServer(t *testing.T, withMetadata bool) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	writeTestDataset(t, dir, withMetadata)
	return serveDir(t, dir)
}

func serveDir(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(dataset.NewLoader(dir), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTestDataset(t *testing.T, dir string, withMetadata bool) {
	t.Helper()
	w, err := dataset.NewWriter(dir)
	if err != nil {
		t.Fatal(err)
	}

	stations := []dataset.Station{
		{StationID: "NAT010000", StationName: "서울", CityName: "서울특별시"},
		{StationID: "NAT014445", StationName: "부산", CityName: "부산광역시"},
		{StationID: "NAT013271", StationName: "김천(구미)", CityName: "경상북도"},
	}
	routes := []dataset.Route{
		{
			DepStationID: "NAT010000", DepStationName: "서울",
			ArrStationID: "NAT014445", ArrStationName: "부산",
			Schedules: []dataset.Schedule{
				schedule("105", "KTX", "07:00", 59800),
				schedule("101", "KTX", "05:13", 59800),
				schedule("1001", "ITX-새마을", "06:10", 42600),
				schedule("1201", "무궁화호", "06:30", 0),
			},
		},
		{
			DepStationID: "NAT014445", DepStationName: "부산",
			ArrStationID: "NAT010000", ArrStationName: "서울",
			Schedules: []dataset.Schedule{schedule("102", "KTX", "05:10", 59800)},
		},
	}
	categories := []dataset.Category{
		{Key: dataset.CategoryKTX, Matches: []string{"KTX"}},
		{Key: dataset.CategorySRT, Matches: []string{"SRT"}},
		{Key: dataset.CategoryITX, Matches: []string{"ITX"}},
		{Key: dataset.CategoryMugunghwa, Matches: []string{"무궁화", "누리로", "새마을", "통근"}},
	}
	shards := dataset.Partition(routes, categories)

	if err := w.WriteStations(stations); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteShards(shards); err != nil {
		t.Fatal(err)
	}
	if withMetadata {
		meta := dataset.BuildMetadata(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), len(stations), len(routes), shards)
		if err := w.WriteMetadata(meta); err != nil {
			t.Fatal(err)
		}
	}
}

func getJSON(t *testing.T, srv *httptest.Server, path string, wantStatus int, v interface{}) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("GET %s: Content-Type = %q", path, ct)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
	}
}

func TestHealth(t *testing.T) {
	var health HealthResponse
	getJSON(t, newTestServer(t, true), "/health", http.StatusOK, &health)
	if health.Status != "ok" || health.StationCount != 3 || health.RouteCount != 2 {
		t.Errorf("health = %+v", health)
	}

	getJSON(t, newTestServer(t, false), "/health", http.StatusServiceUnavailable, &health)
	if health.Status != "error" {
		t.Errorf("health without metadata = %+v", health)
	}
}

func TestHealth_DatasetWrittenAfterStart(t *testing.T) {
	dir := t.TempDir()
	srv := serveDir(t, dir)

	var health HealthResponse
	getJSON(t, srv, "/health", http.StatusServiceUnavailable, &health)
	getJSON(t, srv, "/api/metadata", http.StatusNotFound, nil)

	var stations StationsResponse
	getJSON(t, srv, "/api/stations", http.StatusOK, &stations)
	if stations.Count != 0 {
		t.Fatalf("stations before the first run = %+v", stations)
	}
	var routes RoutesResponse
	getJSON(t, srv, "/api/routes/ktx", http.StatusOK, &routes)
	if routes.Count != 0 {
		t.Fatalf("ktx routes before the first run = %+v", routes)
	}

	writeTestDataset(t, dir, true)

	getJSON(t, srv, "/health", http.StatusOK, &health)
	if health.Status != "ok" || health.StationCount != 3 {
		t.Errorf("health after the first run = %+v", health)
	}
	getJSON(t, srv, "/api/metadata", http.StatusOK, nil)
	getJSON(t, srv, "/api/stations", http.StatusOK, &stations)
	if stations.Count != 3 {
		t.Errorf("stations after the first run = %d, want 3", stations.Count)
	}
	getJSON(t, srv, "/api/routes/ktx", http.StatusOK, &routes)
	if routes.Count != 2 {
		t.Errorf("ktx routes after the first run = %d, want 2", routes.Count)
	}
	getJSON(t, srv, "/api/routes/NAT010000/NAT014445", http.StatusOK, nil)
}

func TestGetMetadata(t *testing.T) {
	var meta dataset.Metadata
	getJSON(t, newTestServer(t, true), "/api/metadata", http.StatusOK, &meta)
	if meta.LastUpdated != "2025-03-01T00:00:00.000Z" || meta.KTXRouteCount != 2 || meta.ITXRouteCount != 1 {
		t.Errorf("metadata = %+v", meta)
	}

	var errResp ErrorResponse
	getJSON(t, newTestServer(t, false), "/api/metadata", http.StatusNotFound, &errResp)
}

func TestGetStations(t *testing.T) {
	srv := newTestServer(t, true)

	var all StationsResponse
	getJSON(t, srv, "/api/stations", http.StatusOK, &all)
	if all.Count != 3 || all.Stations[2].StationName != "김천(구미)" {
		t.Errorf("stations = %+v", all)
	}

	var filtered StationsResponse
	getJSON(t, srv, "/api/stations?city="+url.QueryEscape("부산광역시"), http.StatusOK, &filtered)
	if filtered.Count != 1 || filtered.Stations[0].StationID != "NAT014445" {
		t.Errorf("filtered = %+v", filtered)
	}
}

func TestGetStation(t *testing.T) {
	srv := newTestServer(t, true)

	var detail struct {
		StationID  string `json:"stationId"`
		RouteCount int    `json:"routeCount"`
		Routes     []struct {
			ArrStationID   string   `json:"arrStationId"`
			ScheduleCount  int      `json:"scheduleCount"`
			TrainTypes     []string `json:"trainTypes"`
			FirstDeparture string   `json:"firstDeparture"`
			Fare           struct {
				Min      int64  `json:"min"`
				MaxLabel string `json:"maxLabel"`
			} `json:"fare"`
		} `json:"routes"`
	}
	getJSON(t, srv, "/api/stations/NAT010000", http.StatusOK, &detail)

	if detail.StationID != "NAT010000" || detail.RouteCount != 1 {
		t.Fatalf("detail = %+v", detail)
	}
	r := detail.Routes[0]
	if r.ArrStationID != "NAT014445" || r.ScheduleCount != 4 || r.FirstDeparture != "05:13" {
		t.Errorf("route summary = %+v", r)
	}
	if r.Fare.Min != 42600 || r.Fare.MaxLabel != "59,800원" {
		t.Errorf("fare = %+v", r.Fare)
	}
	if len(r.TrainTypes) != 3 {
		t.Errorf("train types = %v", r.TrainTypes)
	}

	var errResp ErrorResponse
	getJSON(t, srv, "/api/stations/NAT999999", http.StatusNotFound, &errResp)
	if errResp.Details["stationId"] != "NAT999999" {
		t.Errorf("error = %+v", errResp)
	}
}

func TestGetStationRoutes(t *testing.T) {
	srv := newTestServer(t, true)

	var routes RoutesResponse
	getJSON(t, srv, "/api/stations/NAT014445/routes", http.StatusOK, &routes)
	if routes.Count != 1 || routes.Routes[0].ArrStationID != "NAT010000" {
		t.Errorf("routes = %+v", routes)
	}

	getJSON(t, srv, "/api/stations/NAT013271/routes", http.StatusOK, &routes)
	if routes.Count != 0 || routes.Routes == nil {
		t.Errorf("routes of a station without departures = %+v", routes)
	}

	getJSON(t, srv, "/api/stations/NAT999999/routes", http.StatusNotFound, nil)
}

func TestGetCategoryRoutes(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		category string
		count    int
	}{
		{"ktx", 2},
		{"srt", 0},
		{"itx", 1},
		{"mugunghwa", 1},
		{"general", 1},
	}
	for _, tc := range tests {
		t.Run(tc.category, func(t *testing.T) {
			var routes RoutesResponse
			getJSON(t, srv, "/api/routes/"+tc.category, http.StatusOK, &routes)
			if routes.Count != tc.count || len(routes.Routes) != tc.count || routes.Category != tc.category {
				t.Errorf("routes = %+v, want %d", routes, tc.count)
			}
		})
	}

	var errResp ErrorResponse
	getJSON(t, srv, "/api/routes/tgv", http.StatusNotFound, &errResp)
	if errResp.Error != "Unknown category" {
		t.Errorf("error = %+v", errResp)
	}
}

func TestGetRoute(t *testing.T) {
	srv := newTestServer(t, true)

	var detail struct {
		DepStationName string             `json:"depStationName"`
		Schedules      []dataset.Schedule `json:"schedules"`
	}
	getJSON(t, srv, "/api/routes/NAT010000/NAT014445", http.StatusOK, &detail)

	if detail.DepStationName != "서울" {
		t.Errorf("depStationName = %q", detail.DepStationName)
	}
	if len(detail.Schedules) != 4 {
		t.Fatalf("schedules = %+v", detail.Schedules)
	}
	for i := 1; i < len(detail.Schedules); i++ {
		if detail.Schedules[i-1].DepTime > detail.Schedules[i].DepTime {
			t.Errorf("schedules not ordered by departure: %+v", detail.Schedules)
		}
	}

	getJSON(t, srv, "/api/routes/NAT010000/NAT014445?category=ktx", http.StatusOK, &detail)
	if len(detail.Schedules) != 2 {
		t.Errorf("ktx-only schedules = %+v", detail.Schedules)
	}

	getJSON(t, srv, "/api/routes/NAT010000/NAT014445?category=general", http.StatusOK, &detail)
	if len(detail.Schedules) != 2 {
		t.Errorf("general schedules = %+v", detail.Schedules)
	}
	for _, sc := range detail.Schedules {
		if sc.TrainNo != "1001" && sc.TrainNo != "1201" {
			t.Errorf("unexpected train %s in the general view", sc.TrainNo)
		}
	}

	var errResp ErrorResponse
	getJSON(t, srv, "/api/routes/NAT010000/NAT014445?category=tgv", http.StatusNotFound, &errResp)
	if errResp.Error != "Unknown category" || errResp.Details["valid"] == nil {
		t.Errorf("error = %+v", errResp)
	}

	getJSON(t, srv, "/api/routes/NAT014445/NAT013271", http.StatusNotFound, nil)
}

func TestCacheHeaders(t *testing.T) {
	srv := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/api/stations")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if cc := resp.Header.Get("Cache-Control"); cc == "" {
		t.Error("missing Cache-Control on a dataset response")
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("health Cache-Control = %q", cc)
	}
}
