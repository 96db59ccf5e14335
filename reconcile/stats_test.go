package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectStatsEmptyStore(t *testing.T) {
	exec := newTestExec(t)

	stats, err := CollectStats(context.Background(), exec)
	require.NoError(t, err)

	assert.Zero(t, stats.TotalRecords)
	assert.Zero(t, stats.UniqueTriggers)
	assert.Empty(t, stats.FirstTrigger)
	assert.Empty(t, stats.LastTrigger)
}

func TestCollectStatsCountsAndRange(t *testing.T) {
	exec := newTestExec(t)

	insertCombined(t, exec, "2025-03-01 09:00:00", "2025-03-01 09:00:02", "start_phase_1", "start_phase_1")
	insertCombined(t, exec, "2025-03-01 09:00:00", "2025-03-01 09:00:09", "start_phase_6", "start_phase_6")
	insertCombined(t, exec, "2025-03-01 09:02:00", "2025-03-01 09:02:30", "start_phase_1", "start_phase_1")

	stats, err := CollectStats(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 2, stats.UniqueTriggers)
	assert.Equal(t, "2025-03-01 09:00:00", stats.FirstTrigger)
	assert.Equal(t, "2025-03-01 09:02:00", stats.LastTrigger)
}
