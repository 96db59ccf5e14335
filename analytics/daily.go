package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// DailyProcessor maintains the daily_summaries table: cycle counts, record
// counts, cycle-duration statistics and completion efficiency for one day.
type DailyProcessor struct {
	exec     *db.Executor
	log      *zap.SugaredLogger
	terminal string
}

// NewDailyProcessor creates the daily summary processor.
func NewDailyProcessor(exec *db.Executor, log *zap.SugaredLogger, terminal string) *DailyProcessor {
	return &DailyProcessor{exec: exec, log: log, terminal: terminal}
}

// Name identifies the processor in runner logs.
func (p *DailyProcessor) Name() string { return "daily" }

// RunForDate recomputes and upserts the summary for the given day. A day with
// no records is left untouched.
func (p *DailyProcessor) RunForDate(ctx context.Context, day time.Time) error {
	date := dayKey(day)

	var (
		totalCycles  int
		totalRecords int
		avgMinutes   float64
		maxMinutes   float64
		minMinutes   float64
		completed    int
	)
	err := p.exec.QueryRow(ctx, `
		WITH cycles AS (
			SELECT
				trigger_ts,
				COUNT(*) AS records,
				`+cycleMinutesExpr+` AS cycle_minutes,
				`+completedExpr+` AS completed
			FROM combined_records
			WHERE trigger_ts IS NOT NULL AND DATE(trigger_ts) = ?
			GROUP BY trigger_ts
		)
		SELECT
			COUNT(*),
			COALESCE(SUM(records), 0),
			COALESCE(AVG(cycle_minutes), 0),
			COALESCE(MAX(cycle_minutes), 0),
			COALESCE(MIN(cycle_minutes), 0),
			COALESCE(SUM(completed), 0)
		FROM cycles`,
		p.terminal, p.terminal, date,
	).Scan(&totalCycles, &totalRecords, &avgMinutes, &maxMinutes, &minMinutes, &completed)
	if err != nil {
		return errors.Wrapf(err, "daily summary for %s", date)
	}

	if totalCycles == 0 {
		p.log.Debugw("No cycles for day, skipping summary", "day", date)
		return nil
	}

	var uniqueCodes int
	err = p.exec.QueryRow(ctx, `
		SELECT COUNT(DISTINCT scan_ts)
		FROM combined_records
		WHERE trigger_ts IS NOT NULL AND DATE(trigger_ts) = ?`,
		date,
	).Scan(&uniqueCodes)
	if err != nil {
		return errors.Wrapf(err, "daily code count for %s", date)
	}

	err = p.exec.Update(ctx, `
		INSERT INTO daily_summaries
			(day, total_cycles, total_records, unique_codes,
			 completed_cycles, incomplete_cycles,
			 avg_cycle_minutes, max_cycle_minutes, min_cycle_minutes,
			 efficiency_pct, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			total_cycles = excluded.total_cycles,
			total_records = excluded.total_records,
			unique_codes = excluded.unique_codes,
			completed_cycles = excluded.completed_cycles,
			incomplete_cycles = excluded.incomplete_cycles,
			avg_cycle_minutes = excluded.avg_cycle_minutes,
			max_cycle_minutes = excluded.max_cycle_minutes,
			min_cycle_minutes = excluded.min_cycle_minutes,
			efficiency_pct = excluded.efficiency_pct,
			updated_at = excluded.updated_at`,
		date, totalCycles, totalRecords, uniqueCodes,
		completed, totalCycles-completed,
		avgMinutes, maxMinutes, minMinutes,
		efficiencyPct(completed, totalCycles), nowStamp(),
	)
	if err != nil {
		return errors.Wrapf(err, "save daily summary for %s", date)
	}

	p.log.Infow("Daily summary saved",
		"day", date, "cycles", totalCycles, "completed", completed)
	return nil
}
