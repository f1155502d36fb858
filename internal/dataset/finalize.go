package dataset

import (
	"fmt"
	"time"
)

// Finalize writes the end-of-run files: routes.json with every route, one
// shard per category, metadata.json and manifest.json. It runs the same way
// for completed, budget-exhausted and cancelled runs. Any error is fatal for
// the run.
func Finalize(w *Writer, categories []Category, stationCount int, routes []Route, runID string, now time.Time) (Metadata, []Shard, error) {
	if err := w.Persist(routes); err != nil {
		return Metadata{}, nil, fmt.Errorf("failed to write routes: %w", err)
	}

	shards := Partition(routes, categories)
	if err := w.WriteShards(shards); err != nil {
		return Metadata{}, nil, fmt.Errorf("failed to write shards: %w", err)
	}

	meta := BuildMetadata(now, stationCount, len(routes), shards)
	if err := w.WriteMetadata(meta); err != nil {
		return Metadata{}, nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := w.WriteManifest(runID, now); err != nil {
		return Metadata{}, nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return meta, shards, nil
}
