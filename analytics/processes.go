package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
	"github.com/seamline/seamline/reconcile"
)

// ProcessProcessor maintains the process_summaries table: how many records a
// day spent in each seaming phase, and how many of the day's cycles reached
// that phase at all. A phase whose count drops to zero still gets its row
// refreshed so a recomputed day never leaves stale numbers behind.
type ProcessProcessor struct {
	exec *db.Executor
	log  *zap.SugaredLogger
}

// NewProcessProcessor creates the phase summary processor.
func NewProcessProcessor(exec *db.Executor, log *zap.SugaredLogger) *ProcessProcessor {
	return &ProcessProcessor{exec: exec, log: log}
}

// Name identifies the processor in runner logs.
func (p *ProcessProcessor) Name() string { return "processes" }

// RunForDate recomputes and upserts one row per phase for the day.
func (p *ProcessProcessor) RunForDate(ctx context.Context, day time.Time) error {
	date := dayKey(day)

	var total int
	err := p.exec.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM combined_records
		WHERE trigger_ts IS NOT NULL AND DATE(trigger_ts) = ?`,
		date,
	).Scan(&total)
	if err != nil {
		return errors.Wrapf(err, "phase summaries for %s", date)
	}
	if total == 0 {
		p.log.Debugw("No records for day, skipping phase summaries", "day", date)
		return nil
	}

	stamp := nowStamp()
	// All six bit positions set: the full ordered phase list.
	for _, phase := range reconcile.DecodeHistory(63) {
		var records, reaching int
		err := p.exec.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(CASE WHEN current_phase = ? THEN 1 ELSE 0 END), 0),
				COUNT(DISTINCT CASE
					WHEN instr(' ' || phase_history || ' ', ' ' || ? || ' ') > 0
					THEN trigger_ts END)
			FROM combined_records
			WHERE trigger_ts IS NOT NULL AND DATE(trigger_ts) = ?`,
			phase, phase, date,
		).Scan(&records, &reaching)
		if err != nil {
			return errors.Wrapf(err, "phase summary for %s/%s", date, phase)
		}

		err = p.exec.Update(ctx, `
			INSERT INTO process_summaries
				(day, phase, records, cycles_reaching, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(day, phase) DO UPDATE SET
				records = excluded.records,
				cycles_reaching = excluded.cycles_reaching,
				updated_at = excluded.updated_at`,
			date, phase, records, reaching, stamp,
		)
		if err != nil {
			return errors.Wrapf(err, "save phase summary for %s/%s", date, phase)
		}
	}

	p.log.Infow("Phase summaries saved", "day", date)
	return nil
}
