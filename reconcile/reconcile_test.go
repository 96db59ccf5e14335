package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
)

// newTestExec opens a migrated in-memory database.
func newTestExec(t *testing.T) *db.Executor {
	t.Helper()
	database, err := db.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database, nil))
	return db.NewExecutor(database, zap.NewNop().Sugar())
}

func insertTrigger(t *testing.T, exec *db.Executor, ts string) {
	t.Helper()
	require.NoError(t, exec.Update(context.Background(),
		"INSERT INTO conveyor_triggers (triggered_at) VALUES (?)", ts))
}

func insertScan(t *testing.T, exec *db.Executor, ts, code, operator, workOrder string) {
	t.Helper()
	require.NoError(t, exec.Update(context.Background(),
		"INSERT INTO scan_codes (scanned_at, product_code, operator_id, work_order) VALUES (?, ?, ?, ?)",
		ts, code, operator, workOrder))
}

func insertSample(t *testing.T, exec *db.Executor, ts, bits string) {
	t.Helper()
	require.NoError(t, exec.Update(context.Background(),
		"INSERT INTO seamer_samples (sampled_at, status_bits) VALUES (?, ?)", ts, bits))
}

func countCombined(t *testing.T, exec *db.Executor) int {
	t.Helper()
	var n int
	require.NoError(t, exec.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM combined_records").Scan(&n))
	return n
}

func mustParse(t *testing.T, ts string) time.Time {
	t.Helper()
	parsed, err := ParseTimestamp(ts)
	require.NoError(t, err)
	return parsed
}

// newTestDriver wires a driver over real components with a fixed clock.
func newTestDriver(t *testing.T, exec *db.Executor, now time.Time) *Driver {
	t.Helper()
	log := zap.NewNop().Sugar()
	cursor, err := NewCursorStore(context.Background(), exec, log)
	require.NoError(t, err)

	d := NewDriver(
		exec,
		cursor,
		NewCodeMatcher(exec, log),
		NewSampleFetcher(exec, log),
		NewCycleValidator(exec, log, nil),
		NewRecordWriter(exec, log),
		NewCatalog(exec, log),
		DefaultDriverConfig(),
		log,
	)
	d.now = func() time.Time { return now }
	return d
}
