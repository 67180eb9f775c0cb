package client

import (
	"context"
	"testing"
	"time"
)

// roundTrip issues one call and waits for its reply, guaranteeing the reader
// loop has processed everything pushed before the reply frame.
func roundTrip(t *testing.T, c *Client, ft *fakeTransport) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "system.listMethods", []any{}, 0)
		done <- err
	}()
	frame := ft.awaitSend(t)
	ft.reply(t, *frame.ID, []string{})
	if err := <-done; err != nil {
		t.Fatalf("sync call: %v", err)
	}
}

func awaitNotification(t *testing.T, sub *Subscription) Notification {
	t.Helper()
	select {
	case n, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed while waiting for a notification")
		}
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return Notification{}
	}
}

func TestSubscriptionDeliversInOrder(t *testing.T) {
	c, ft := newTestClient(t)
	sub := c.SubscribeNotifications()
	defer sub.Close()

	gids := []string{"g1", "g2", "g3", "g4", "g5"}
	for _, gid := range gids {
		ft.notify(t, MethodDownloadStart, gid)
	}
	for _, want := range gids {
		n := awaitNotification(t, sub)
		if n.Method != MethodDownloadStart || n.GID() != want {
			t.Fatalf("expected %s for %s, got %s for %s", MethodDownloadStart, want, n.Method, n.GID())
		}
	}
	if sub.Missed() {
		t.Fatal("missed flag set although nothing was evicted")
	}
}

func TestLateSubscriberSeesNoReplay(t *testing.T) {
	c, ft := newTestClient(t)
	probe := c.SubscribeNotifications()
	defer probe.Close()

	ft.notify(t, MethodDownloadStart, "before")
	if n := awaitNotification(t, probe); n.GID() != "before" {
		t.Fatalf("probe got %s", n.GID())
	}

	// The first event has been fanned out, so a subscription created now must
	// only ever observe later events.
	sub := c.SubscribeNotifications()
	defer sub.Close()
	ft.notify(t, MethodDownloadStart, "after")

	if n := awaitNotification(t, sub); n.GID() != "after" {
		t.Fatalf("late subscriber saw replayed event %s", n.GID())
	}
}

func TestSlowSubscriberEvictsOldestAndNeverStallsCalls(t *testing.T) {
	c, ft := newTestClient(t, WithNotifyBuffer(1))
	slow := c.SubscribeNotifications()
	defer slow.Close()

	ft.notify(t, MethodDownloadStart, "e1")
	ft.notify(t, MethodDownloadStart, "e2")
	ft.notify(t, MethodDownloadStart, "e3")

	// The reader loop is strictly ordered, so once this call resolves all
	// three notifications have been published.
	roundTrip(t, c, ft)

	if !slow.Missed() {
		t.Fatal("missed flag not latched after eviction")
	}
	if n := awaitNotification(t, slow); n.GID() != "e3" {
		t.Fatalf("expected newest event e3 to survive, got %s", n.GID())
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	c, ft := newTestClient(t)
	sub := c.SubscribeNotifications()
	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel still open after Close")
	}

	// Publishing after the unsubscribe must not panic or misroute.
	ft.notify(t, MethodDownloadStart, "g1")
	roundTrip(t, c, ft)
}

func TestSubscriptionsEndOnConnectionClose(t *testing.T) {
	ft := newFakeTransport()
	c := New(ft)
	sub := c.SubscribeNotifications()

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after connection close")
	}

	late := c.SubscribeNotifications()
	if _, ok := <-late.Events(); ok {
		t.Fatal("subscription on a closed client should start closed")
	}
}

func TestBusEvictsOldestAndLatchesMissed(t *testing.T) {
	b := newBus()
	small := b.subscribe(2)
	big := b.subscribe(8)

	for _, gid := range []string{"a", "b", "c"} {
		b.publish(Notification{Method: MethodDownloadStart, Params: []byte(`[{"gid":"` + gid + `"}]`)})
	}

	if got := (<-small.ch).GID(); got != "b" {
		t.Fatalf("expected oldest event evicted, first surviving is %q", got)
	}
	if got := (<-small.ch).GID(); got != "c" {
		t.Fatalf("expected c second, got %q", got)
	}
	if !small.Missed() {
		t.Fatal("missed flag not latched")
	}

	for _, want := range []string{"a", "b", "c"} {
		if got := (<-big.ch).GID(); got != want {
			t.Fatalf("big subscriber expected %q, got %q", want, got)
		}
	}
	if big.Missed() {
		t.Fatal("big subscriber should not have missed anything")
	}
}

func TestBusCloseAndLateSubscribe(t *testing.T) {
	b := newBus()
	sub := b.subscribe(1)
	b.close()
	b.close()

	if _, ok := <-sub.ch; ok {
		t.Fatal("expected closed channel after bus close")
	}
	late := b.subscribe(1)
	if _, ok := <-late.ch; ok {
		t.Fatal("subscribe on closed bus should return a closed channel")
	}
	// Publishing on a closed bus is a no-op.
	b.publish(Notification{Method: MethodDownloadStart})
}
