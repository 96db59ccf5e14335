package notify

import (
	"context"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seamline/seamline/errors"
)

// defaultReadTimeout bounds each blocking read so cancellation is observed
// even when the channel is silent.
const defaultReadTimeout = 5 * time.Second

// event is the broadcaster's message envelope.
type event struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
}

// subscribeFrame is sent once after connecting.
type subscribeFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// ChannelWaiter blocks between cycles until the scan broadcaster publishes an
// event on the configured channel. Compared to fixed-interval polling this
// starts the next cycle as soon as a new scan code lands instead of up to a
// full period later.
//
// The connection is dialed lazily on first use and redialed after read
// failures. A Wait that cannot connect returns the error; the runner logs it
// and proceeds with the next cycle, which acts as a degraded polling mode.
type ChannelWaiter struct {
	url         string
	channel     string
	readTimeout time.Duration
	log         *zap.SugaredLogger

	conn *websocket.Conn
}

// NewChannelWaiter creates a waiter for the given broadcaster endpoint and
// channel name.
func NewChannelWaiter(url, channel string, readTimeout time.Duration, log *zap.SugaredLogger) *ChannelWaiter {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &ChannelWaiter{
		url:         url,
		channel:     channel,
		readTimeout: readTimeout,
		log:         log,
	}
}

// Wait blocks until an event arrives on the subscribed channel or ctx is
// cancelled. Events on other channels are ignored. The elapsed cycle time is
// not used: a published scan always means there is new work.
func (w *ChannelWaiter) Wait(ctx context.Context, _ time.Duration) error {
	if w.conn == nil {
		if err := w.connect(ctx); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.conn.SetReadDeadline(time.Now().Add(w.readTimeout)); err != nil {
			w.drop()
			return errors.Wrap(err, "set scan channel read deadline")
		}

		var ev event
		err := w.conn.ReadJSON(&ev)
		if err != nil {
			// Deadline expiry is the cancellation poll point, not a failure.
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			w.drop()
			return errors.Wrap(err, "scan channel read")
		}

		if ev.Channel == w.channel {
			return nil
		}
		w.log.Debugw("Ignoring event on other channel",
			"channel", ev.Channel, "subscribed", w.channel)
	}
}

// Close releases the broadcaster connection.
func (w *ChannelWaiter) Close() error {
	if w.conn == nil {
		return nil
	}
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	return err
}

// connect dials the broadcaster and subscribes to the channel.
func (w *ChannelWaiter) connect(ctx context.Context) error {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial scan broadcaster %s", w.url)
	}

	if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Channel: w.channel}); err != nil {
		conn.Close()
		return errors.Wrapf(err, "subscribe to channel %s", w.channel)
	}

	w.log.Infow("Subscribed to scan channel", "url", w.url, "channel", w.channel)
	w.conn = conn
	return nil
}

// drop discards a broken connection so the next Wait redials.
func (w *ChannelWaiter) drop() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
