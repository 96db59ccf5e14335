package reconcile

import (
	"context"
	"database/sql"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// Stats summarizes the combined-record store for startup, periodic and
// shutdown reporting.
type Stats struct {
	TotalRecords   int
	UniqueTriggers int
	UniqueCodes    int
	FirstTrigger   string
	LastTrigger    string
}

// CollectStats reads processing statistics from the combined-record store.
func CollectStats(ctx context.Context, exec *db.Executor) (*Stats, error) {
	stats := &Stats{}

	err := exec.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT trigger_ts),
			COUNT(DISTINCT scan_ts)
		FROM combined_records`,
	).Scan(&stats.TotalRecords, &stats.UniqueTriggers, &stats.UniqueCodes)
	if err != nil {
		return nil, errors.Wrap(err, "collect record counts")
	}

	var first, last sql.NullString
	err = exec.QueryRow(ctx, `
		SELECT MIN(trigger_ts), MAX(trigger_ts)
		FROM combined_records
		WHERE trigger_ts IS NOT NULL`,
	).Scan(&first, &last)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "collect trigger range")
	}
	stats.FirstTrigger = first.String
	stats.LastTrigger = last.String

	return stats, nil
}
