package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rail-timetable/collector/internal/sampler"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusExhausted = "budget_exhausted"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned by GetRun for an unknown run id
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the runs table
type Run struct {
	RunID         string
	DepDate       string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Status        string
	StationCount  int
	HubCount      int
	ProbeCount    int
	RouteCount    int
	ScheduleCount int
}

// RunSummary is recorded when a run finishes
type RunSummary struct {
	Status        string
	StationCount  int
	HubCount      int
	ProbeCount    int
	RouteCount    int
	ScheduleCount int
}

// StartRun creates a run record and returns its ID
func (db *DB) StartRun(ctx context.Context, depDate string, startedAt time.Time) (string, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	runID := uuid.New().String()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO runs (run_id, dep_date, started_at_utc, status) VALUES (?, ?, ?, ?)",
		runID, depDate, startedAt.UTC().Format(time.RFC3339), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// RecordProbe appends one probe to a run
func (db *DB) RecordProbe(ctx context.Context, runID string, p sampler.Probe, probedAt time.Time) error {
	db.LockWrite()
	defer db.UnlockWrite()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO probes (run_id, phase, dep_station_id, arr_station_id, outcome, schedule_count, probed_at_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, p.Phase, p.DepStationID, p.ArrStationID, p.Outcome.String(), p.Schedules,
		probedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record probe: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run
func (db *DB) FinishRun(ctx context.Context, runID string, summary RunSummary, finishedAt time.Time) error {
	db.LockWrite()
	defer db.UnlockWrite()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE runs SET
			finished_at_utc = ?,
			status = ?,
			station_count = ?,
			hub_count = ?,
			probe_count = ?,
			route_count = ?,
			schedule_count = ?
		WHERE run_id = ?`,
		finishedAt.UTC().Format(time.RFC3339), summary.Status,
		summary.StationCount, summary.HubCount, summary.ProbeCount,
		summary.RouteCount, summary.ScheduleCount, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads one run
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT run_id, dep_date, started_at_utc, finished_at_utc, status,
			station_count, hub_count, probe_count, route_count, schedule_count
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&run.RunID, &run.DepDate, &startedAt, &finishedAt, &run.Status,
		&run.StationCount, &run.HubCount, &run.ProbeCount, &run.RouteCount, &run.ScheduleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		run.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

// OutcomeCounts returns the number of probes per outcome for a run
func (db *DB) OutcomeCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM probes WHERE run_id = ? GROUP BY outcome", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count probes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan probe count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Recorder journals the probes of one run. Write failures are logged and
// never interrupt collection.
type Recorder struct {
	db    *DB
	runID string
	now   func() time.Time

	failures int
}

// NewRecorder creates a probe recorder for runID
func NewRecorder(db *DB, runID string) *Recorder {
	return &Recorder{db: db, runID: runID, now: time.Now}
}

// RecordProbe implements sampler.ProbeRecorder. The write is detached from
// ctx cancellation so the probe in flight at SIGINT is still journaled.
func (r *Recorder) RecordProbe(ctx context.Context, p sampler.Probe) {
	ctx = context.WithoutCancel(ctx)
	if err := r.db.RecordProbe(ctx, r.runID, p, r.now()); err != nil {
		r.failures++
		// first failure, then every 100th
		if r.failures == 1 || r.failures%100 == 0 {
			log.Printf("Journal: %v (%d failures)", err, r.failures)
		}
	}
}

// Failures returns the number of probes that could not be journaled
func (r *Recorder) Failures() int {
	return r.failures
}
