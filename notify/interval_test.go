package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalWaiterSubtractsElapsed(t *testing.T) {
	w := NewIntervalWaiter(100*time.Millisecond, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, w.Wait(context.Background(), 70*time.Millisecond))
	waited := time.Since(start)

	assert.GreaterOrEqual(t, waited, 25*time.Millisecond)
	assert.Less(t, waited, 90*time.Millisecond)
}

func TestIntervalWaiterFloorsAtMinWait(t *testing.T) {
	w := NewIntervalWaiter(50*time.Millisecond, 20*time.Millisecond)

	// The cycle overran the whole interval
	start := time.Now()
	require.NoError(t, w.Wait(context.Background(), 200*time.Millisecond))
	waited := time.Since(start)

	assert.GreaterOrEqual(t, waited, 15*time.Millisecond)
}

func TestIntervalWaiterCancellation(t *testing.T) {
	w := NewIntervalWaiter(10*time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := w.Wait(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}
