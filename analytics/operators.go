package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// OperatorProcessor maintains the operator_summaries table: per-operator
// cycle counts, durations and completion efficiency for one day. Records with
// no operator are skipped.
type OperatorProcessor struct {
	exec     *db.Executor
	log      *zap.SugaredLogger
	terminal string
}

// NewOperatorProcessor creates the operator summary processor.
func NewOperatorProcessor(exec *db.Executor, log *zap.SugaredLogger, terminal string) *OperatorProcessor {
	return &OperatorProcessor{exec: exec, log: log, terminal: terminal}
}

// Name identifies the processor in runner logs.
func (p *OperatorProcessor) Name() string { return "operators" }

// RunForDate recomputes and upserts one row per operator active on the day.
func (p *OperatorProcessor) RunForDate(ctx context.Context, day time.Time) error {
	date := dayKey(day)

	rows, err := p.exec.Query(ctx, `
		WITH cycles AS (
			SELECT
				trigger_ts,
				MIN(COALESCE(operator_id, '')) AS operator_id,
				`+cycleMinutesExpr+` AS cycle_minutes,
				`+completedExpr+` AS completed
			FROM combined_records
			WHERE trigger_ts IS NOT NULL AND DATE(trigger_ts) = ?
			GROUP BY trigger_ts
		)
		SELECT
			operator_id,
			COUNT(*),
			COALESCE(SUM(completed), 0),
			COALESCE(AVG(cycle_minutes), 0)
		FROM cycles
		WHERE operator_id <> ''
		GROUP BY operator_id`,
		p.terminal, p.terminal, date,
	)
	if err != nil {
		return errors.Wrapf(err, "operator summaries for %s", date)
	}
	defer rows.Close()

	type operatorRow struct {
		operator   string
		cycles     int
		completed  int
		avgMinutes float64
	}
	var summaries []operatorRow
	for rows.Next() {
		var r operatorRow
		if err := rows.Scan(&r.operator, &r.cycles, &r.completed, &r.avgMinutes); err != nil {
			return errors.Wrapf(err, "scan operator summary for %s", date)
		}
		summaries = append(summaries, r)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "iterate operator summaries for %s", date)
	}

	if len(summaries) == 0 {
		p.log.Debugw("No operators for day, skipping summaries", "day", date)
		return nil
	}

	stamp := nowStamp()
	for _, r := range summaries {
		err := p.exec.Update(ctx, `
			INSERT INTO operator_summaries
				(day, operator_id, cycles, completed_cycles,
				 avg_cycle_minutes, efficiency_pct, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(day, operator_id) DO UPDATE SET
				cycles = excluded.cycles,
				completed_cycles = excluded.completed_cycles,
				avg_cycle_minutes = excluded.avg_cycle_minutes,
				efficiency_pct = excluded.efficiency_pct,
				updated_at = excluded.updated_at`,
			date, r.operator, r.cycles, r.completed,
			r.avgMinutes, efficiencyPct(r.completed, r.cycles), stamp,
		)
		if err != nil {
			return errors.Wrapf(err, "save operator summary for %s/%s", date, r.operator)
		}
	}

	p.log.Infow("Operator summaries saved", "day", date, "operators", len(summaries))
	return nil
}
