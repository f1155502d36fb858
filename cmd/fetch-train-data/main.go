package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/rail-timetable/collector/internal/collector"
	"github.com/rail-timetable/collector/internal/config"
	"github.com/rail-timetable/collector/internal/dataset"
	"github.com/rail-timetable/collector/internal/db"
	"github.com/rail-timetable/collector/internal/governor"
	"github.com/rail-timetable/collector/internal/metrics"
	"github.com/rail-timetable/collector/internal/sampler"
	"github.com/rail-timetable/collector/internal/tago"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// .env is optional; real environment variables take precedence
	_ = godotenv.Load(".env")

	cfg, err := loadConfig()
	if errors.Is(err, config.ErrMissingServiceKey) {
		log.Printf("Error: %v", err)
		log.Println("사용법: TRAIN_API_KEY=your_api_key go run ./cmd/fetch-train-data")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Printf("Fatal: %v", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and checks that a run can start
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	started := time.Now()
	log.Println("=== Train data collection ===")
	log.Printf("API key: %s", cfg.MaskedKey())
	log.Printf("Config: date=%s, probes<=%d, delays list=%v meta=%v probe=%v, data=%s",
		cfg.DepDate, cfg.MaxProbeCalls, cfg.ListDelay, cfg.MetaDelay, cfg.ProbeDelay, cfg.DataDir)

	if cfg.MinRefreshAge > 0 && !dataset.IsStaleOrMissing(cfg.DataDir, cfg.MinRefreshAge, started) {
		log.Printf("Dataset in %s is younger than %v, skipping collection", cfg.DataDir, cfg.MinRefreshAge)
		return nil
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Output directory and run journal
	// ═══════════════════════════════════════════════════════
	writer, err := dataset.NewWriter(cfg.DataDir)
	if err != nil {
		return err
	}

	jr := openJournal(ctx, cfg, started)
	defer jr.close()

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Reference data
	// ═══════════════════════════════════════════════════════
	gov := governor.New(map[governor.Class]time.Duration{
		governor.ClassList:  cfg.ListDelay,
		governor.ClassMeta:  cfg.MetaDelay,
		governor.ClassProbe: cfg.ProbeDelay,
	}, cfg.MaxProbeCalls)
	latency := metrics.NewLatencyTracker()
	client := tago.NewClient(cfg.APIBaseURL, cfg.ServiceKey, cfg.HTTPTimeout, gov, latency)

	trainTypes := client.TrainTypes(ctx)
	log.Printf("Train types: %d", len(trainTypes))
	for _, t := range trainTypes {
		log.Printf("  - %s: %s", t.VehicleKindID, t.VehicleKindName)
	}

	stations, err := collector.New(client).Collect(ctx)
	if err != nil {
		log.Printf("Warning: station collection interrupted: %v", err)
	}
	if err := writer.WriteStations(stations); err != nil {
		jr.finish(db.StatusFailed, sampler.Stats{}, len(stations), 0)
		return fmt.Errorf("failed to write stations: %w", err)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Route sampling
	// ═══════════════════════════════════════════════════════
	opts := sampler.Options{FlushEvery: cfg.FlushEvery}
	if jr.recorder != nil {
		opts.Recorder = jr.recorder
	}
	s := sampler.New(client, gov, writer, cfg.Catalog.HubStations, opts)
	stats := s.Run(ctx, stations, cfg.DepDate)
	routes := s.Routes()

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Final output
	// ═══════════════════════════════════════════════════════
	status := db.StatusCompleted
	switch {
	case stats.Cancelled || ctx.Err() != nil:
		status = db.StatusCancelled
	case stats.Exhausted:
		status = db.StatusExhausted
	}

	if err := writeDataset(writer, cfg, jr.id, stations, routes); err != nil {
		jr.finish(db.StatusFailed, stats, len(stations), len(routes))
		return err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	for _, l := range latency.Summaries() {
		log.Printf("Latency %s: n=%d mean=%v stddev=%v", l.Class, l.Count, l.Mean.Round(time.Millisecond), l.StdDev.Round(time.Millisecond))
	}

	jr.finish(status, stats, len(stations), len(routes))
	jr.cleanup(cfg)

	log.Println("=== Collection finished ===")
	log.Printf("Output: %s", writer.Dir())
	log.Printf("Status: %s, %d probes in %v", status, stats.Probes, time.Since(started).Round(time.Second))
	return nil
}

// writeDataset persists the final routes, shards, metadata and manifest.
// Any failure here is fatal for the run.
func writeDataset(writer *dataset.Writer, cfg *config.Config, runID string, stations []dataset.Station, routes []dataset.Route) error {
	meta, shards, err := dataset.Finalize(writer, cfg.Catalog.DatasetCategories(), len(stations), routes, runID, time.Now())
	if err != nil {
		return err
	}

	log.Println("=== Category shards ===")
	for _, shard := range shards {
		log.Printf("  %s: %d routes (%d schedules)", cfg.Catalog.Label(shard.Category), len(shard.Routes), shard.ScheduleCount())
	}
	log.Printf("Stations: %d", meta.StationCount)
	log.Printf("Routes: %d", meta.RouteCount)
	log.Printf("  KTX: %d | SRT: %d | ITX: %d | 무궁화호: %d",
		meta.KTXRouteCount, meta.SRTRouteCount, meta.ITXRouteCount, meta.MugunghwaRouteCount)
	log.Printf("Last updated: %s", meta.LastUpdated)
	return nil
}

// journalRun tracks the journal record of this run. The journal is optional:
// when it cannot be opened, the run continues with a local id only.
type journalRun struct {
	id       string
	db       *db.DB
	recorder *db.Recorder
	finished bool
	ctx      context.Context
}

func openJournal(ctx context.Context, cfg *config.Config, started time.Time) *journalRun {
	// journal writes must survive SIGINT so the run can be finalized
	jctx := context.WithoutCancel(ctx)
	jr := &journalRun{id: uuid.New().String(), ctx: jctx}

	if cfg.JournalPath == "" {
		return jr
	}

	journal, err := db.Open(jctx, cfg.JournalPath)
	if err != nil {
		log.Printf("Warning: run journal disabled: %v", err)
		return jr
	}

	id, err := journal.StartRun(jctx, cfg.DepDate, started)
	if err != nil {
		log.Printf("Warning: run journal disabled: %v", err)
		journal.Close()
		return jr
	}

	jr.id = id
	jr.db = journal
	jr.recorder = db.NewRecorder(journal, id)
	log.Printf("Journal: run %s", id)
	return jr
}

func (r *journalRun) finish(status string, stats sampler.Stats, stations, routes int) {
	if r.db == nil || r.finished {
		return
	}
	r.finished = true

	err := r.db.FinishRun(r.ctx, r.id, db.RunSummary{
		Status:        status,
		StationCount:  stations,
		HubCount:      stats.Hubs,
		ProbeCount:    stats.Probes,
		RouteCount:    routes,
		ScheduleCount: stats.Schedules,
	}, time.Now())
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	if n := r.recorder.Failures(); n > 0 {
		log.Printf("Warning: %d probes could not be journaled", n)
	}
}

func (r *journalRun) cleanup(cfg *config.Config) {
	if r.db == nil || cfg.JournalRetentionDays <= 0 {
		return
	}
	retention := time.Duration(cfg.JournalRetentionDays) * 24 * time.Hour
	if err := r.db.Cleanup(r.ctx, retention); err != nil {
		log.Printf("Warning: journal cleanup failed: %v", err)
	}
}

func (r *journalRun) close() {
	if r.db == nil {
		return
	}
	if err := r.db.Close(); err != nil {
		log.Printf("Warning: failed to close journal: %v", err)
	}
}
