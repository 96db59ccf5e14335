package reconcile

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// CodeMatcher finds the scan code belonging to a trigger event.
type CodeMatcher struct {
	exec *db.Executor
	log  *zap.SugaredLogger
}

// NewCodeMatcher creates a matcher over the scan_codes table.
func NewCodeMatcher(exec *db.Executor, log *zap.SugaredLogger) *CodeMatcher {
	return &CodeMatcher{exec: exec, log: log}
}

// Match returns the earliest scan code with timestamp in (after, until].
// At most one result is consumed even when several scans land in the window;
// equal timestamps are broken by insertion order (id) so the result is
// deterministic. Returns errors.ErrNoCodeMatch when the window holds none.
func (m *CodeMatcher) Match(ctx context.Context, after, until time.Time) (*CodeEvent, error) {
	var (
		scannedAt            string
		productCode          string
		operatorID, workOrder sql.NullString
	)
	err := m.exec.QueryRow(ctx, `
		SELECT scanned_at, product_code, operator_id, work_order
		FROM scan_codes
		WHERE scanned_at > ? AND scanned_at <= ?
		ORDER BY scanned_at ASC, id ASC
		LIMIT 1`,
		FormatTimestamp(after),
		FormatTimestamp(until),
	).Scan(&scannedAt, &productCode, &operatorID, &workOrder)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Wrapf(errors.ErrNoCodeMatch,
			"window (%s, %s]", FormatTimestamp(after), FormatTimestamp(until))
	case err != nil:
		return nil, errors.Wrap(err, "match scan code")
	}

	at, perr := ParseTimestamp(scannedAt)
	if perr != nil {
		return nil, errors.Wrapf(perr, "scanned_at for code %s", productCode)
	}

	m.log.Infow("Scan code matched",
		"trigger", FormatTimestamp(after),
		"scanned_at", scannedAt,
		"product_code", productCode)

	return &CodeEvent{
		At:          at,
		ProductCode: productCode,
		OperatorID:  operatorID.String,
		WorkOrder:   workOrder.String,
	}, nil
}
