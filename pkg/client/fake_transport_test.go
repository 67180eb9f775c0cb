package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/driftbyte/aria2ws/pkg/rpc"
)

// fakeTransport is an in-memory Transport for driving the client from tests.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []*rpc.Frame
	sentCh    chan *rpc.Frame
	incoming  chan []byte
	sendErr   error
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sentCh:   make(chan *rpc.Frame, 64),
		incoming: make(chan []byte, 64),
	}
}

func (t *fakeTransport) Send(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	err := t.sendErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	frame, decodeErr := rpc.Decode(payload)
	if decodeErr != nil {
		return decodeErr
	}
	t.mu.Lock()
	t.sent = append(t.sent, frame)
	t.mu.Unlock()
	t.sentCh <- frame
	return nil
}

func (t *fakeTransport) Receive() <-chan []byte {
	return t.incoming
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.incoming) })
	return nil
}

func (t *fakeTransport) failSends(err error) {
	t.mu.Lock()
	t.sendErr = err
	t.mu.Unlock()
}

// awaitSend returns the next frame the client wrote.
func (t *fakeTransport) awaitSend(tb testing.TB) *rpc.Frame {
	tb.Helper()
	select {
	case frame := <-t.sentCh:
		return frame
	case <-time.After(2 * time.Second):
		tb.Fatal("timed out waiting for a sent frame")
		return nil
	}
}

func (t *fakeTransport) reply(tb testing.TB, id uint64, result any) {
	tb.Helper()
	frame, err := rpc.NewResponse(id, result)
	if err != nil {
		tb.Fatalf("build reply: %v", err)
	}
	t.push(tb, frame)
}

func (t *fakeTransport) replyError(tb testing.TB, id uint64, code int, message string) {
	tb.Helper()
	t.push(tb, rpc.NewErrorResponse(id, code, message))
}

func (t *fakeTransport) notify(tb testing.TB, method, gid string) {
	tb.Helper()
	frame, err := rpc.NewNotification(method, []map[string]string{{"gid": gid}})
	if err != nil {
		tb.Fatalf("build notification: %v", err)
	}
	t.push(tb, frame)
}

func (t *fakeTransport) push(tb testing.TB, frame *rpc.Frame) {
	tb.Helper()
	payload, err := frame.Marshal()
	if err != nil {
		tb.Fatalf("marshal frame: %v", err)
	}
	t.pushRaw(payload)
}

func (t *fakeTransport) pushRaw(payload []byte) {
	t.incoming <- payload
}

func decodeResult[T any](tb testing.TB, raw json.RawMessage) T {
	tb.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		tb.Fatalf("decode result: %v", err)
	}
	return v
}
