// Package sampler discovers routes by probing station pairs in two phases
// under a fixed call budget.
//
// Phase 1 probes every hub against every station. Phase 2, run only while
// budget remains, probes every non-hub against the hubs. Pairs between two
// non-hubs are never probed.
package sampler

import (
	"context"
	"log"

	"github.com/rail-timetable/collector/internal/dataset"
	"github.com/rail-timetable/collector/internal/metrics"
	"github.com/rail-timetable/collector/internal/tago"
)

// DefaultFlushEvery is the number of completed origins between checkpoints
const DefaultFlushEvery = 5

// Prober fetches the schedules of one ordered station pair. *tago.Client
// satisfies it.
type Prober interface {
	Schedules(ctx context.Context, depStationID, arrStationID, depDate string) ([]tago.RawSchedule, tago.Outcome)
}

// Budget hands out probe units. *governor.Governor satisfies it.
type Budget interface {
	Acquire() bool
	Remaining() int
	Calls() int
}

// Checkpointer persists the accumulated routes. *dataset.Writer satisfies it.
type Checkpointer interface {
	Persist(routes []dataset.Route) error
}

// ProbeRecorder receives every issued probe
type ProbeRecorder interface {
	RecordProbe(ctx context.Context, p Probe)
}

// Probe describes one issued probe
type Probe struct {
	Phase        int
	DepStationID string
	ArrStationID string
	Outcome      tago.Outcome
	Schedules    int
}

// Options tunes a sampler
type Options struct {
	FlushEvery int
	Recorder   ProbeRecorder
}

// Stats summarizes a run
type Stats struct {
	Hubs         int
	NonHubs      int
	Probes       int
	Phase1Probes int
	Phase2Probes int
	Skipped      int // self pairs and pairs already probed
	Routes       int
	Schedules    int
	Checkpoints  int
	Phase2Run    bool
	Exhausted    bool
	Cancelled    bool
}

// Sampler runs the two-phase route discovery
type Sampler struct {
	prober     Prober
	budget     Budget
	checkpoint Checkpointer
	hubNames   []string
	flushEvery int
	recorder   ProbeRecorder

	store *dataset.Store
	seen  map[string]struct{}
	stats Stats
}

// New creates a sampler
func New(prober Prober, budget Budget, checkpoint Checkpointer, hubNames []string, opts Options) *Sampler {
	flushEvery := opts.FlushEvery
	if flushEvery < 1 {
		flushEvery = DefaultFlushEvery
	}
	return &Sampler{
		prober:     prober,
		budget:     budget,
		checkpoint: checkpoint,
		hubNames:   hubNames,
		flushEvery: flushEvery,
		recorder:   opts.Recorder,
		store:      dataset.NewStore(),
		seen:       make(map[string]struct{}),
	}
}

// stopReason tells why a phase ended early
type stopReason int

const (
	keepGoing stopReason = iota
	budgetSpent
	cancelled
	noBudgetNeeded // budget spent, but phase 2 has no pairs to probe
)

// Run probes station pairs for depDate. It never fails: probes that error
// count as empty, and running out of budget or being cancelled ends the run
// with whatever was collected. Routes are available from Routes afterwards.
func (s *Sampler) Run(ctx context.Context, stations []dataset.Station, depDate string) Stats {
	hubs, nonHubs := ClassifyHubs(stations, s.hubNames)
	s.stats.Hubs = len(hubs)
	s.stats.NonHubs = len(nonHubs)

	log.Printf("Sampler: %d hubs, %d non-hub stations, date %s", len(hubs), len(nonHubs), depDate)
	if len(hubs) > 0 {
		names := make([]string, 0, 10)
		for _, h := range hubs {
			if len(names) == 10 {
				break
			}
			names = append(names, h.StationName)
		}
		log.Printf("Sampler: first hubs: %v", names)
	}
	log.Printf("Sampler: budget %d probes", s.budget.Remaining())
	metrics.ProbeBudgetRemaining.Set(float64(s.budget.Remaining()))

	stop := s.phase(ctx, 1, hubs, stations, depDate)
	s.flush("phase 1 done")

	// phase 1 may end on its very last probe with nothing left for phase 2
	if stop == keepGoing && s.budget.Remaining() <= 0 {
		if len(hubs) > 0 && len(nonHubs) > 0 {
			log.Printf("Sampler: probe budget exhausted at the end of phase 1 after %d probes", s.stats.Probes)
			stop = budgetSpent
		} else {
			stop = noBudgetNeeded
		}
	}

	if stop == keepGoing {
		s.stats.Phase2Run = true
		stop = s.phase(ctx, 2, nonHubs, hubs, depDate)
		s.flush("phase 2 done")
	} else {
		log.Printf("Sampler: skipping phase 2")
	}

	s.stats.Exhausted = stop == budgetSpent
	s.stats.Cancelled = stop == cancelled
	s.stats.Routes = s.store.Len()
	s.stats.Schedules = s.store.ScheduleCount()

	log.Printf("Sampler: %d routes, %d schedules (%d probes)", s.stats.Routes, s.stats.Schedules, s.stats.Probes)
	return s.stats
}

// Routes returns a snapshot of the discovered routes in discovery order
func (s *Sampler) Routes() []dataset.Route {
	return s.store.Snapshot()
}

func (s *Sampler) phase(ctx context.Context, phase int, origins, destinations []dataset.Station, depDate string) stopReason {
	for i, dep := range origins {
		for _, arr := range destinations {
			if dep.StationID == arr.StationID {
				s.stats.Skipped++
				continue
			}
			key := dataset.RouteKey(dep.StationID, arr.StationID)
			if _, ok := s.seen[key]; ok {
				s.stats.Skipped++
				continue
			}

			if ctx.Err() != nil {
				log.Printf("Sampler: cancelled during phase %d after %d probes", phase, s.stats.Probes)
				return cancelled
			}
			if !s.budget.Acquire() {
				log.Printf("Sampler: probe budget exhausted during phase %d after %d probes", phase, s.stats.Probes)
				return budgetSpent
			}
			s.seen[key] = struct{}{}

			s.probe(ctx, phase, dep, arr, depDate)
		}

		if (i+1)%s.flushEvery == 0 {
			log.Printf("Sampler: phase %d: %d/%d origins done - %d probes - %d routes",
				phase, i+1, len(origins), s.stats.Probes, s.store.Len())
			s.flush("progress")
		}
	}
	return keepGoing
}

func (s *Sampler) probe(ctx context.Context, phase int, dep, arr dataset.Station, depDate string) {
	raws, outcome := s.prober.Schedules(ctx, dep.StationID, arr.StationID, depDate)

	s.stats.Probes++
	if phase == 1 {
		s.stats.Phase1Probes++
	} else {
		s.stats.Phase2Probes++
	}
	metrics.ProbeBudgetRemaining.Set(float64(s.budget.Remaining()))

	schedules := dataset.NormalizeAll(raws)
	if len(schedules) > 0 {
		s.store.AddOrMerge(dataset.Route{
			DepStationID:   dep.StationID,
			DepStationName: dep.StationName,
			ArrStationID:   arr.StationID,
			ArrStationName: arr.StationName,
			Schedules:      schedules,
		})
		metrics.RoutesDiscovered.Set(float64(s.store.Len()))
	}

	if s.recorder != nil {
		s.recorder.RecordProbe(ctx, Probe{
			Phase:        phase,
			DepStationID: dep.StationID,
			ArrStationID: arr.StationID,
			Outcome:      outcome,
			Schedules:    len(schedules),
		})
	}
}

// flush checkpoints the store. Failures are logged and the run continues.
func (s *Sampler) flush(reason string) {
	if s.checkpoint == nil {
		return
	}
	if err := s.checkpoint.Persist(s.store.Snapshot()); err != nil {
		log.Printf("Sampler: checkpoint (%s) failed: %v", reason, err)
		metrics.Checkpoints.WithLabelValues("error").Inc()
		return
	}
	s.stats.Checkpoints++
	metrics.Checkpoints.WithLabelValues("ok").Inc()
}
