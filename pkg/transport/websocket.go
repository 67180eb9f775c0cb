package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a duplex message channel. Send transmits one serialized
// message; Receive yields inbound messages until the connection ends, at
// which point the channel is closed.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive() <-chan []byte
	Close() error
}

// DefaultHandshakeTimeout bounds the websocket dial handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// WebSocket implements Transport over a single websocket connection.
type WebSocket struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	incoming  chan []byte
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to a websocket endpoint and starts the read pump.
func Dial(ctx context.Context, endpoint string) (*WebSocket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t := &WebSocket{
		conn:     conn,
		incoming: make(chan []byte, 32),
	}
	go t.readPump()
	return t, nil
}

// Send writes one text message. Writes are serialized; a context deadline is
// applied as the write deadline when present.
func (t *WebSocket) Send(ctx context.Context, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	} else {
		if err := t.conn.SetWriteDeadline(time.Time{}); err != nil {
			return err
		}
	}
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

// Receive returns the inbound message stream. The channel is closed when the
// connection ends.
func (t *WebSocket) Receive() <-chan []byte {
	return t.incoming
}

// Close tears down the connection. Safe to call multiple times; the read
// pump exits and the receive channel closes shortly after.
func (t *WebSocket) Close() error {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		t.writeMu.Unlock()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *WebSocket) readPump() {
	defer close(t.incoming)
	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			return
		}
		t.incoming <- payload
	}
}
