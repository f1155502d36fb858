package db

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Cleanup deletes runs, and their probes, started before the retention window
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	hours := int(retention.Hours())
	if hours < 1 {
		hours = 1
	}

	db.LockWrite()
	defer db.UnlockWrite()

	cutoff := fmt.Sprintf("-%d hours", hours)
	queries := []struct {
		name  string
		query string
	}{
		{
			name: "probes",
			query: `DELETE FROM probes WHERE run_id IN (
				SELECT run_id FROM runs WHERE datetime(started_at_utc) < datetime('now', ?)
			)`,
		},
		{
			name:  "runs",
			query: "DELETE FROM runs WHERE datetime(started_at_utc) < datetime('now', ?)",
		},
	}

	deleted := make(map[string]int64, len(queries))
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		deleted[q.name], _ = result.RowsAffected()
	}

	if deleted["runs"] > 0 {
		log.Printf("Journal: deleted %d runs (%d probes) older than %d hours", deleted["runs"], deleted["probes"], hours)
	}
	return nil
}
