package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newBroadcaster starts a test server that upgrades, verifies the subscribe
// frame, and then runs publish with the connection.
func newBroadcaster(t *testing.T, publish func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeFrame
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("reading subscribe frame: %v", err)
			return
		}
		if sub.Type != "subscribe" {
			t.Errorf("unexpected frame type %q", sub.Type)
			return
		}
		publish(conn)
	}))
	t.Cleanup(srv.Close)
	return strings.Replace(srv.URL, "http://", "ws://", 1)
}

func TestChannelWaiterReturnsOnMatchingEvent(t *testing.T) {
	url := newBroadcaster(t, func(conn *websocket.Conn) {
		conn.WriteJSON(event{Channel: "seamer:2:scan", Type: "scan"})
		conn.WriteJSON(event{Channel: "seamer:1:scan", Type: "scan"})
		time.Sleep(100 * time.Millisecond)
	})

	w := NewChannelWaiter(url, "seamer:1:scan", time.Second, zap.NewNop().Sugar())
	defer w.Close()

	done := make(chan error, 1)
	go func() { done <- w.Wait(context.Background(), 0) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return on published event")
	}
}

func TestChannelWaiterObservesCancellationWhileSilent(t *testing.T) {
	url := newBroadcaster(t, func(conn *websocket.Conn) {
		// Publish nothing, hold the connection open
		time.Sleep(2 * time.Second)
	})

	w := NewChannelWaiter(url, "seamer:1:scan", 50*time.Millisecond, zap.NewNop().Sugar())
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Wait(ctx, 0) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not observe cancellation")
	}
}

func TestChannelWaiterDialFailure(t *testing.T) {
	w := NewChannelWaiter("ws://127.0.0.1:1/events", "seamer:1:scan",
		time.Second, zap.NewNop().Sugar())

	err := w.Wait(context.Background(), 0)
	require.Error(t, err)
	assert.Nil(t, w.conn)
}

func TestChannelWaiterDropsBrokenConnection(t *testing.T) {
	url := newBroadcaster(t, func(conn *websocket.Conn) {
		// Close immediately after the subscription
	})

	w := NewChannelWaiter(url, "seamer:1:scan", time.Second, zap.NewNop().Sugar())
	defer w.Close()

	err := w.Wait(context.Background(), 0)
	require.Error(t, err)
	// The next Wait redials instead of reusing the dead connection
	assert.Nil(t, w.conn)
}
