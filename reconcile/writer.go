package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// RecordWriter persists combined-record batches.
type RecordWriter struct {
	exec *db.Executor
	log  *zap.SugaredLogger
}

// NewRecordWriter creates a writer over the combined_records table.
func NewRecordWriter(exec *db.Executor, log *zap.SugaredLogger) *RecordWriter {
	return &RecordWriter{exec: exec, log: log}
}

// WriteBatch persists a batch of records sharing one trigger+scan pairing.
// Duplicate-ignore semantics: a record whose (scan_ts, sample_ts, trigger_ts)
// key already exists is silently skipped, which makes at-least-once
// redelivery safe. The batch commits or fails as a whole; any failure means
// the caller must not advance the cursor for this trigger.
func (w *RecordWriter) WriteBatch(ctx context.Context, records []CombinedRecord) error {
	if len(records) == 0 {
		return nil
	}

	paramRows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		paramRows = append(paramRows, []interface{}{
			FormatTimestamp(r.ScanTS),
			FormatTimestamp(r.SampleTS),
			FormatTimestamp(r.TriggerTS),
			r.StatusBits,
			r.CurrentPhase,
			r.PhaseHistory,
			r.ProductCode,
			r.Description,
			r.OperatorID,
			r.WorkOrder,
		})
	}

	err := w.exec.Batch(ctx, `
		INSERT OR IGNORE INTO combined_records
			(scan_ts, sample_ts, trigger_ts, status_bits,
			 current_phase, phase_history,
			 product_code, description, operator_id, work_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		paramRows,
	)
	if err != nil {
		// Mark keeps the underlying database error chain intact while making
		// the failure identifiable as ErrWriteFailed.
		return errors.Mark(errors.Wrap(err, "save combined records"), errors.ErrWriteFailed)
	}

	w.log.Infow("Combined records saved",
		"count", len(records),
		"trigger", FormatTimestamp(records[0].TriggerTS))
	return nil
}
