package sampler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rail-timetable/collector/internal/dataset"
	"github.com/rail-timetable/collector/internal/governor"
	"github.com/rail-timetable/collector/internal/tago"
)

// fakeProber answers probes from a fixed table and records the call order
type fakeProber struct {
	answers map[string][]tago.RawSchedule
	calls   []string
	onCall  func()
}

func (f *fakeProber) Schedules(ctx context.Context, dep, arr, date string) ([]tago.RawSchedule, tago.Outcome) {
	f.calls = append(f.calls, dataset.RouteKey(dep, arr))
	if f.onCall != nil {
		f.onCall()
	}
	items := f.answers[dataset.RouteKey(dep, arr)]
	if len(items) == 0 {
		return nil, tago.OutcomeEmpty
	}
	return items, tago.OutcomeOK
}

type memCheckpoint struct {
	flushes [][]dataset.Route
	err     error
}

func (m *memCheckpoint) Persist(routes []dataset.Route) error {
	m.flushes = append(m.flushes, routes)
	return m.err
}

type recorded struct {
	probes []Probe
}

func (r *recorded) RecordProbe(ctx context.Context, p Probe) {
	r.probes = append(r.probes, p)
}

func raw(trainNo, grade string) tago.RawSchedule {
	return tago.RawSchedule{
		TrainGradeName: grade,
		TrainNo:        tago.Numeral(trainNo),
		DepPlandTime:   "20250301060000",
		ArrPlandTime:   "20250301083000",
		AdultCharge:    "23700",
	}
}

func station(id, name string) dataset.Station {
	return dataset.Station{StationID: id, StationName: name}
}

func TestRun_TwoPhaseCoverage(t *testing.T) {
	x := station("X", "서울")
	y := station("Y", "신탄진")
	z := station("Z", "매포")

	prober := &fakeProber{answers: map[string][]tago.RawSchedule{
		"X-Y": {raw("1201", "무궁화호")},
		"Z-X": {raw("1632", "무궁화호")},
	}}
	cp := &memCheckpoint{}
	s := New(prober, governor.New(nil, 100), cp, []string{"서울"}, Options{})

	stats := s.Run(context.Background(), []dataset.Station{x, y, z}, "20250301")

	want := []string{"X-Y", "X-Z", "Y-X", "Z-X"}
	if !reflect.DeepEqual(prober.calls, want) {
		t.Errorf("probes = %v, want %v", prober.calls, want)
	}
	if stats.Probes != 4 || stats.Phase1Probes != 2 || stats.Phase2Probes != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.Phase2Run || stats.Exhausted || stats.Cancelled {
		t.Errorf("stats flags = %+v", stats)
	}

	routes := s.Routes()
	if len(routes) != 2 || routes[0].Key() != "X-Y" || routes[1].Key() != "Z-X" {
		t.Fatalf("routes = %+v", routes)
	}
	if routes[0].DepStationName != "서울" || routes[0].Schedules[0].DepTime != "06:00" {
		t.Errorf("route X-Y = %+v", routes[0])
	}

	// one flush per phase end
	if len(cp.flushes) != 2 || len(cp.flushes[1]) != 2 {
		t.Errorf("flushes = %d", len(cp.flushes))
	}
}

func TestRun_SelfAndSeenPairsCostNothing(t *testing.T) {
	a := station("A", "서울")
	b := station("B", "용산")

	prober := &fakeProber{}
	gov := governor.New(nil, 2)
	s := New(prober, gov, &memCheckpoint{}, []string{"서울", "용산"}, Options{})

	stats := s.Run(context.Background(), []dataset.Station{a, b}, "20250301")

	if gov.Calls() != 2 || len(prober.calls) != 2 {
		t.Errorf("budget used = %d, probes = %v", gov.Calls(), prober.calls)
	}
	if stats.Exhausted || stats.Phase2Run {
		t.Errorf("stats = %+v; a budget that exactly covers the pairs is not exhausted", stats)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2 self pairs", stats.Skipped)
	}
}

func TestRun_SeenPairsAcrossPhases(t *testing.T) {
	// "A" appears twice in the station list
	stations := []dataset.Station{
		station("A", "서울"),
		station("B", "신탄진"),
		station("A", "서울"),
	}

	prober := &fakeProber{}
	s := New(prober, governor.New(nil, 100), &memCheckpoint{}, []string{"서울"}, Options{})
	s.Run(context.Background(), stations, "20250301")

	counts := map[string]int{}
	for _, c := range prober.calls {
		counts[c]++
	}
	for pair, n := range counts {
		if n != 1 {
			t.Errorf("pair %s probed %d times", pair, n)
		}
	}
	if len(prober.calls) != 2 {
		t.Errorf("probes = %v, want A-B and B-A", prober.calls)
	}
}

func TestRun_BudgetCeiling(t *testing.T) {
	var stations []dataset.Station
	names := []string{"서울", "용산", "대전", "부산", "신탄진", "매포", "옥천"}
	for i, n := range names {
		stations = append(stations, station(string(rune('A'+i)), n))
	}

	prober := &fakeProber{answers: map[string][]tago.RawSchedule{
		"A-B": {raw("101", "KTX")},
		"A-C": {raw("103", "KTX")},
		"B-A": {raw("102", "KTX")},
	}}
	dir := t.TempDir()
	w, err := dataset.NewWriter(dir)
	if err != nil {
		t.Fatal(err)
	}

	gov := governor.New(nil, 10)
	s := New(prober, gov, w, []string{"서울", "용산", "대전", "부산"}, Options{})
	stats := s.Run(context.Background(), stations, "20250301")

	if gov.Calls() != 10 || len(prober.calls) != 10 {
		t.Errorf("issued %d probes, want exactly 10", len(prober.calls))
	}
	if !stats.Exhausted || stats.Phase2Run {
		t.Errorf("stats = %+v, want exhausted in phase 1", stats)
	}
	// the second hub origin was cut short after four probes
	if prober.calls[9] != "B-E" {
		t.Errorf("last probe = %s, want B-E", prober.calls[9])
	}

	data, err := os.ReadFile(filepath.Join(dir, dataset.RoutesFile))
	if err != nil {
		t.Fatal(err)
	}
	var routes []dataset.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		t.Fatalf("checkpoint is not valid JSON: %v", err)
	}
	if len(routes) != 3 {
		t.Errorf("checkpoint has %d routes, want 3", len(routes))
	}
}

func TestRun_BudgetSpentByPhase1SkipsPhase2(t *testing.T) {
	x := station("X", "서울")
	y := station("Y", "신탄진")
	z := station("Z", "매포")

	prober := &fakeProber{}
	cp := &memCheckpoint{}
	gov := governor.New(nil, 2)
	s := New(prober, gov, cp, []string{"서울"}, Options{})

	stats := s.Run(context.Background(), []dataset.Station{x, y, z}, "20250301")

	if want := []string{"X-Y", "X-Z"}; !reflect.DeepEqual(prober.calls, want) {
		t.Errorf("probes = %v, want %v", prober.calls, want)
	}
	if stats.Phase2Run || !stats.Exhausted {
		t.Errorf("stats = %+v, want phase 2 skipped and budget exhausted", stats)
	}
	if len(cp.flushes) != 1 || stats.Checkpoints != 1 {
		t.Errorf("flushes = %d, want only the phase 1 checkpoint", len(cp.flushes))
	}
}

func TestRun_CheckpointCadence(t *testing.T) {
	var stations []dataset.Station
	var hubNames []string
	for i := 0; i < 7; i++ {
		name := "허브" + string(rune('가'+i))
		stations = append(stations, station(string(rune('A'+i)), name))
		hubNames = append(hubNames, name)
	}

	cp := &memCheckpoint{}
	s := New(&fakeProber{}, governor.New(nil, 1000), cp, hubNames, Options{FlushEvery: 5})
	stats := s.Run(context.Background(), stations, "20250301")

	// after origin 5, at the end of phase 1, at the end of (empty) phase 2
	if len(cp.flushes) != 3 || stats.Checkpoints != 3 {
		t.Errorf("flushes = %d, stats.Checkpoints = %d, want 3", len(cp.flushes), stats.Checkpoints)
	}
	if stats.Probes != 42 {
		t.Errorf("Probes = %d, want 7*6", stats.Probes)
	}
}

func TestRun_CheckpointFailureContinues(t *testing.T) {
	cp := &memCheckpoint{err: errors.New("disk full")}
	prober := &fakeProber{answers: map[string][]tago.RawSchedule{"A-B": {raw("1", "KTX")}}}
	s := New(prober, governor.New(nil, 100), cp, []string{"서울"}, Options{FlushEvery: 1})

	stats := s.Run(context.Background(), []dataset.Station{station("A", "서울"), station("B", "신탄진")}, "20250301")

	if stats.Routes != 1 || stats.Checkpoints != 0 || len(cp.flushes) == 0 {
		t.Errorf("stats = %+v, flush attempts = %d", stats, len(cp.flushes))
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober := &fakeProber{
		answers: map[string][]tago.RawSchedule{"A-B": {raw("1", "KTX")}},
		onCall:  cancel,
	}
	cp := &memCheckpoint{}
	gov := governor.New(nil, 100)
	s := New(prober, gov, cp, []string{"서울"}, Options{})

	stations := []dataset.Station{station("A", "서울"), station("B", "신탄진"), station("C", "매포")}
	stats := s.Run(ctx, stations, "20250301")

	if !stats.Cancelled || stats.Phase2Run || stats.Probes != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if gov.Calls() != 1 {
		t.Errorf("budget used = %d, want 1", gov.Calls())
	}
	if len(cp.flushes) != 1 || len(cp.flushes[0]) != 1 {
		t.Errorf("expected the collected route to be checkpointed, flushes = %+v", cp.flushes)
	}
}

func TestRun_RecordsProbes(t *testing.T) {
	rec := &recorded{}
	prober := &fakeProber{answers: map[string][]tago.RawSchedule{
		"A-B": {raw("1", "KTX"), raw("3", "KTX")},
	}}
	s := New(prober, governor.New(nil, 100), &memCheckpoint{}, []string{"서울"}, Options{Recorder: rec})

	s.Run(context.Background(), []dataset.Station{station("A", "서울"), station("B", "신탄진")}, "20250301")

	want := []Probe{
		{Phase: 1, DepStationID: "A", ArrStationID: "B", Outcome: tago.OutcomeOK, Schedules: 2},
		{Phase: 2, DepStationID: "B", ArrStationID: "A", Outcome: tago.OutcomeEmpty, Schedules: 0},
	}
	if !reflect.DeepEqual(rec.probes, want) {
		t.Errorf("recorded = %+v, want %+v", rec.probes, want)
	}
}
