// Package client implements the aria2 websocket JSON-RPC engine: typed
// calls correlated to replies over one duplex connection, notification
// fan-out, and one-shot per-download hooks.
package client

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftbyte/aria2ws/pkg/rpc"
	"github.com/driftbyte/aria2ws/pkg/transport"
)

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency
// cycles.
type Logger interface {
	Printf(format string, v ...any)
}

// ConnState tracks the lifecycle of one connection instance. The transition
// to StateClosed is irreversible.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

const (
	// DefaultTimeout bounds a call when the caller passes no timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultExtendedTimeout applies to methods aria2 answers only after the
	// affected download reacted (remove, pause, shutdown).
	DefaultExtendedTimeout = 120 * time.Second

	defaultNotifyBuffer = 64
	hookNotifyBuffer    = 128
)

// Client multiplexes calls and notifications over a single Transport.
type Client struct {
	tr              transport.Transport
	secret          string
	timeout         time.Duration
	extendedTimeout time.Duration
	notifyBuffer    int
	logger          Logger

	state atomic.Int32

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingCall

	bus   *bus
	hooks *hookManager

	closed    chan struct{}
	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithSecret sets the aria2 RPC secret. It is sent as the leading
// "token:<secret>" parameter on every call.
func WithSecret(secret string) Option {
	return func(c *Client) { c.secret = secret }
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithExtendedTimeout overrides the timeout used by slow methods.
func WithExtendedTimeout(d time.Duration) Option {
	return func(c *Client) { c.extendedTimeout = d }
}

// WithLogger sets the protocol-error logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithNotifyBuffer sets the per-subscription buffer size.
func WithNotifyBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.notifyBuffer = n
		}
	}
}

// New wraps an established transport and starts the reader loop.
func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		tr:              tr,
		timeout:         DefaultTimeout,
		extendedTimeout: DefaultExtendedTimeout,
		notifyBuffer:    defaultNotifyBuffer,
		pending:         make(map[uint64]*pendingCall),
		closed:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bus = newBus()
	c.hooks = newHookManager(c)
	c.state.Store(int32(StateOpen))
	go c.hooks.run(c.bus.subscribe(hookNotifyBuffer))
	go c.readLoop()
	return c
}

// Dial connects to an aria2 websocket endpoint and returns a ready client.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	tr, err := transport.Dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return New(tr, opts...), nil
}

// State reports the connection lifecycle state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// Close tears down the transport and waits until every pending call has been
// failed and every subscription ended.
func (c *Client) Close() error {
	err := c.tr.Close()
	<-c.closed
	return err
}

// Done is closed once the connection has transitioned to StateClosed.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// readLoop is the sole consumer of the transport stream. Frames with an id
// are replies; frames with a method and no id are notifications; anything
// else is logged and dropped.
func (c *Client) readLoop() {
	for payload := range c.tr.Receive() {
		frame, err := rpc.Decode(payload)
		if err != nil {
			c.logf("dropping undecodable frame: %v", err)
			continue
		}
		if frame.IsReply() {
			c.resolve(frame)
			continue
		}
		c.bus.publish(Notification{Method: frame.Method, Params: frame.Params})
	}
	c.shutdown()
}

// resolve routes a reply to the pending call that issued it. Replies for
// unknown ids (already timed out or evicted) are discarded.
func (c *Client) resolve(frame *rpc.Frame) {
	id := *frame.ID
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		c.logf("discarding reply for unknown call id %d", id)
		return
	}
	if frame.Error != nil {
		pc.done <- callResult{err: &RemoteError{Code: frame.Error.Code, Message: frame.Error.Message}}
		return
	}
	pc.done <- callResult{result: frame.Result}
}

// shutdown runs exactly once when the transport stream ends: it fails every
// pending call, ends every subscription, and abandons hook registrations.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		c.mu.Lock()
		for id, pc := range c.pending {
			delete(c.pending, id)
			pc.done <- callResult{err: ErrConnClosed}
		}
		c.mu.Unlock()
		c.bus.close()
		close(c.closed)
	})
}

func (c *Client) logf(format string, v ...any) {
	if c.logger != nil {
		c.logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}
