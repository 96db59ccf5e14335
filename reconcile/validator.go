package reconcile

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
)

// CycleValidator checks whether a previous cycle's stored records reached a
// terminal phase before the next trigger began. It is an observability
// signal: a negative answer is logged by the driver and never blocks
// processing, and the validator itself never raises.
type CycleValidator struct {
	exec     *db.Executor
	log      *zap.SugaredLogger
	terminal map[string]struct{}
}

// NewCycleValidator creates a validator with the given terminal-phase set.
// An empty set falls back to the canonical TerminalPhase.
func NewCycleValidator(exec *db.Executor, log *zap.SugaredLogger, terminalPhases []string) *CycleValidator {
	terminal := make(map[string]struct{}, len(terminalPhases))
	for _, p := range terminalPhases {
		terminal[p] = struct{}{}
	}
	if len(terminal) == 0 {
		terminal[TerminalPhase] = struct{}{}
	}
	return &CycleValidator{exec: exec, log: log, terminal: terminal}
}

// Complete reports whether any combined record of the cycle that started at
// triggerTS — bounded by nextTriggerTS when present — reached a terminal
// phase, either as its current phase or anywhere in its phase history.
// Errors are logged and reported as incomplete.
func (v *CycleValidator) Complete(ctx context.Context, triggerTS time.Time, nextTriggerTS *time.Time) bool {
	query := `
		SELECT current_phase, phase_history
		FROM combined_records
		WHERE trigger_ts = ?`
	args := []interface{}{FormatTimestamp(triggerTS)}
	if nextTriggerTS != nil {
		query += " AND sample_ts <= ?"
		args = append(args, FormatTimestamp(*nextTriggerTS))
	}
	query += " ORDER BY sample_ts DESC"

	rows, err := v.exec.Query(ctx, query, args...)
	if err != nil {
		v.log.Errorw("Cycle completeness check failed",
			"trigger", FormatTimestamp(triggerTS), "error", err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var current, history string
		if err := rows.Scan(&current, &history); err != nil {
			v.log.Errorw("Cycle completeness scan failed",
				"trigger", FormatTimestamp(triggerTS), "error", err)
			return false
		}
		if _, ok := v.terminal[current]; ok {
			return true
		}
		for _, phase := range strings.Fields(history) {
			if _, ok := v.terminal[phase]; ok {
				return true
			}
		}
	}
	if err := rows.Err(); err != nil {
		v.log.Errorw("Cycle completeness iteration failed",
			"trigger", FormatTimestamp(triggerTS), "error", err)
	}
	return false
}
