package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seamline/seamline/errors"
)

func TestCursorStartsUnset(t *testing.T) {
	exec := newTestExec(t)
	store, err := NewCursorStore(context.Background(), exec, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, ok := store.Get()
	assert.False(t, ok)
}

func TestCursorUpdatePersistsBeforeMemory(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()
	log := zap.NewNop().Sugar()

	store, err := NewCursorStore(ctx, exec, log)
	require.NoError(t, err)

	ts := mustParse(t, "2025-03-01 09:00:00")
	require.NoError(t, store.Update(ctx, ts))

	got, ok := store.Get()
	require.True(t, ok)
	assert.True(t, got.Equal(ts))

	// A fresh store sees the durable value
	reloaded, err := NewCursorStore(ctx, exec, log)
	require.NoError(t, err)
	got, ok = reloaded.Get()
	require.True(t, ok)
	assert.True(t, got.Equal(ts))
}

func TestCursorUpdateIsMonotonicAcrossCycles(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()
	store, err := NewCursorStore(ctx, exec, zap.NewNop().Sugar())
	require.NoError(t, err)

	first := mustParse(t, "2025-03-01 09:00:00")
	second := mustParse(t, "2025-03-01 09:02:00")
	require.NoError(t, store.Update(ctx, first))
	require.NoError(t, store.Update(ctx, second))

	got, ok := store.Get()
	require.True(t, ok)
	assert.False(t, got.Before(first))
	assert.True(t, got.Equal(second))
}

func TestCursorParsesFractionalSeconds(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()
	require.NoError(t, exec.Update(ctx,
		"INSERT INTO reconcile_state (id, last_processed_time, updated_at) VALUES (1, ?, ?)",
		"2025-03-01 09:00:00.123456", "2025-03-01 09:00:01"))

	store, err := NewCursorStore(ctx, exec, zap.NewNop().Sugar())
	require.NoError(t, err)

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, 123456000, got.Nanosecond())
}

func TestMalformedCursorIsFatal(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()
	require.NoError(t, exec.Update(ctx,
		"INSERT INTO reconcile_state (id, last_processed_time, updated_at) VALUES (1, ?, ?)",
		"yesterday-ish", "2025-03-01 09:00:01"))

	_, err := NewCursorStore(ctx, exec, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.True(t, errors.IsMalformedCursor(err))
}

func TestReinitializeFromTriggerData(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()

	require.NoError(t, exec.Update(ctx, `
		INSERT INTO combined_records
			(scan_ts, sample_ts, trigger_ts, current_phase, phase_history, product_code)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"2025-03-01 09:00:05", "2025-03-01 09:00:06", "2025-03-01 09:00:00",
		"start_phase_1", "start_phase_1", "P-1001"))

	store, err := NewCursorStore(ctx, exec, zap.NewNop().Sugar())
	require.NoError(t, err)

	got, ok, err := store.ReinitializeFromData(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01 09:00:00", FormatTimestamp(got))
}

func TestReinitializeCorrectsCursorAheadOfData(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()
	log := zap.NewNop().Sugar()

	require.NoError(t, exec.Update(ctx, `
		INSERT INTO combined_records
			(scan_ts, sample_ts, trigger_ts, current_phase, phase_history, product_code)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"2025-03-01 09:00:05", "2025-03-01 09:00:06", "2025-03-01 09:00:00",
		"start_phase_1", "start_phase_1", "P-1001"))

	store, err := NewCursorStore(ctx, exec, log)
	require.NoError(t, err)
	// Cursor left ahead of the data, e.g. after a raw-table rollback
	require.NoError(t, store.Update(ctx, mustParse(t, "2025-03-02 12:00:00")))

	got, ok, err := store.ReinitializeFromData(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01 09:00:00", FormatTimestamp(got))

	// The correction is durable
	reloaded, err := NewCursorStore(ctx, exec, log)
	require.NoError(t, err)
	cached, ok := reloaded.Get()
	require.True(t, ok)
	assert.Equal(t, "2025-03-01 09:00:00", FormatTimestamp(cached))
}

func TestReinitializeFallsBackToScanTimestamps(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()

	// Legacy rows without trigger correlation
	require.NoError(t, exec.Update(ctx, `
		INSERT INTO combined_records
			(scan_ts, sample_ts, current_phase, phase_history, product_code)
		VALUES (?, ?, ?, ?, ?)`,
		"2025-02-28 17:30:00", "2025-02-28 17:30:02",
		"start_phase_1", "start_phase_1", "P-1001"))

	store, err := NewCursorStore(ctx, exec, zap.NewNop().Sugar())
	require.NoError(t, err)

	got, ok, err := store.ReinitializeFromData(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-02-28 17:30:00", FormatTimestamp(got))
}

func TestReinitializeWithNoDataLeavesCursorUnset(t *testing.T) {
	exec := newTestExec(t)
	ctx := context.Background()

	store, err := NewCursorStore(ctx, exec, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, ok, err := store.ReinitializeFromData(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok = store.Get()
	assert.False(t, ok)

	var n int
	require.NoError(t, exec.QueryRow(ctx, "SELECT COUNT(*) FROM reconcile_state").Scan(&n))
	assert.Zero(t, n)
}
