// Package analytics computes daily rollups from the combined-record store:
// per-day, per-operator, per-product and per-phase summaries. Each processor
// runs as a cycle hook after reconciliation and upserts its summary table, so
// a day is recomputed as long as new records keep arriving for it.
package analytics

import (
	"time"

	"github.com/seamline/seamline/reconcile"
)

// completedExpr flags a cycle as completed when any of its records shows the
// terminal phase, either current or in the history. The terminal phase is
// bound twice as a query parameter.
const completedExpr = `MAX(CASE
	WHEN current_phase = ?
	  OR instr(' ' || phase_history || ' ', ' ' || ? || ' ') > 0
	THEN 1 ELSE 0 END)`

// cycleMinutesExpr measures a cycle as the span of its sample timestamps.
const cycleMinutesExpr = `(julianday(MAX(sample_ts)) - julianday(MIN(sample_ts))) * 1440.0`

func dayKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// nowStamp renders wall-clock local time, the same convention the engine uses
// for reconcile_state.updated_at and all event timestamps.
func nowStamp() string {
	return reconcile.FormatTimestamp(time.Now())
}

func efficiencyPct(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
