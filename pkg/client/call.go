package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftbyte/aria2ws/pkg/rpc"
)

// pendingCall is a single-use delivery slot for one in-flight request. The
// done channel is buffered so resolution never blocks the reader loop, even
// when the caller has already abandoned the call.
type pendingCall struct {
	id         uint64
	done       chan callResult
	registered time.Time
}

type callResult struct {
	result json.RawMessage
	err    error
}

// Call issues one RPC and suspends until it resolves: a reply arrives, the
// timeout elapses, ctx is cancelled, or the connection closes. A timeout of
// zero uses the client default. Any number of calls may be in flight at
// once; each resolves exactly once and independently.
func (c *Client) Call(ctx context.Context, method string, params []any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	if c.secret != "" {
		params = append([]any{"token:" + c.secret}, params...)
	}

	pc, err := c.register()
	if err != nil {
		return nil, err
	}
	frame, err := rpc.NewRequest(pc.id, method, params)
	if err != nil {
		c.evict(pc.id)
		return nil, err
	}
	payload, err := frame.Marshal()
	if err != nil {
		c.evict(pc.id)
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}
	if err := c.tr.Send(ctx, payload); err != nil {
		c.evict(pc.id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-pc.done:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-timer.C:
		c.evict(pc.id)
		return nil, fmt.Errorf("%s after %v: %w", method, timeout, ErrTimeout)
	case <-ctx.Done():
		c.evict(pc.id)
		return nil, ctx.Err()
	}
}

// callInto issues a call and unmarshals the result payload into v.
func (c *Client) callInto(ctx context.Context, method string, params []any, timeout time.Duration, v any) error {
	result, err := c.Call(ctx, method, params, timeout)
	if err != nil {
		return err
	}
	if v == nil || result == nil {
		return nil
	}
	if err := json.Unmarshal(result, v); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// register allocates a fresh identifier and a pending slot. Identifiers are
// never reused while a call holding one is still in flight.
func (c *Client) register() (*pendingCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed {
		return nil, ErrConnClosed
	}
	c.nextID++
	pc := &pendingCall{
		id:         c.nextID,
		done:       make(chan callResult, 1),
		registered: time.Now(),
	}
	c.pending[pc.id] = pc
	return pc, nil
}

// evict withdraws a pending call. A reply that races the eviction and loses
// finds no slot and is discarded.
func (c *Client) evict(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
