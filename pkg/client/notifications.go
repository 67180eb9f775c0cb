package client

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Notification is a server-pushed event: a method name and its parameter
// payload, immutable once received.
type Notification struct {
	Method string
	Params json.RawMessage
}

// GID extracts the download gid from the first params entry, or "" when the
// payload carries none.
func (n Notification) GID() string {
	var params []struct {
		GID string `json:"gid"`
	}
	if err := json.Unmarshal(n.Params, &params); err != nil || len(params) == 0 {
		return ""
	}
	return params[0].GID
}

// Subscription receives every notification published after it was created,
// in publication order. Events stop (the channel closes) when the
// subscription is closed or the connection ends.
type Subscription struct {
	bus       *bus
	ch        chan Notification
	missed    atomic.Bool
	closeOnce sync.Once
}

// Events returns the notification stream.
func (s *Subscription) Events() <-chan Notification {
	return s.ch
}

// Missed reports whether notifications were evicted because the subscriber
// fell behind its buffer.
func (s *Subscription) Missed() bool {
	return s.missed.Load()
}

// Close ends the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.unsubscribe(s)
	})
}

// bus fans notifications out to subscribers. A full subscriber buffer never
// blocks publication: the oldest buffered notification is evicted and the
// subscription's missed flag latches.
type bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newBus() *bus {
	return &bus{subs: make(map[*Subscription]struct{})}
}

func (b *bus) subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{bus: b, ch: make(chan Notification, buffer)}
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// publish delivers n to every live subscriber. Sends are serialized by the
// bus mutex, so after evicting one element the retry cannot find the buffer
// full again.
func (b *bus) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- n:
		default:
			select {
			case <-sub.ch:
				sub.missed.Store(true)
			default:
			}
			select {
			case sub.ch <- n:
			default:
			}
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// SubscribeNotifications returns a live subscription to all future
// server-pushed events. Notifications published before the call are not
// replayed.
func (c *Client) SubscribeNotifications() *Subscription {
	return c.bus.subscribe(c.notifyBuffer)
}
