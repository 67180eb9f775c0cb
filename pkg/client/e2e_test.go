package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/driftbyte/aria2ws/pkg/rpc"
	"github.com/driftbyte/aria2ws/pkg/rpc/rpctest"
)

// Exercises the full stack: real websocket transport against the in-process
// server, calls, secret handling, notifications and hooks.
func TestEndToEndOverWebSocket(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	srv.Register("aria2.getVersion", func(params json.RawMessage) (any, *rpc.Error) {
		var p []string
		if err := json.Unmarshal(params, &p); err != nil || len(p) == 0 || p[0] != "token:hunter2" {
			return nil, &rpc.Error{Code: 1, Message: "Unauthorized"}
		}
		return map[string]any{"version": "1.37.0", "enabledFeatures": []string{"BitTorrent"}}, nil
	})
	srv.Register("aria2.addUri", func(params json.RawMessage) (any, *rpc.Error) {
		return "2089b05ecca3d829", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL(), WithSecret("hunter2"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	v, err := c.GetVersion(ctx)
	if err != nil {
		t.Fatalf("getVersion: %v", err)
	}
	if v.Version != "1.37.0" {
		t.Fatalf("unexpected version %q", v.Version)
	}

	sub := c.SubscribeNotifications()
	defer sub.Close()

	probe := newHookProbe()
	gid, err := c.AddURI(ctx, []string{"https://example.com/f.iso"}, nil, nil, probe.hooks())
	if err != nil {
		t.Fatalf("addUri: %v", err)
	}
	if gid != "2089b05ecca3d829" {
		t.Fatalf("unexpected gid %q", gid)
	}

	if err := srv.Notify(MethodDownloadComplete, []map[string]string{{"gid": gid}}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	probe.await(t, "complete")
	if n := awaitNotification(t, sub); n.Method != MethodDownloadComplete || n.GID() != gid {
		t.Fatalf("subscription saw %s for %s", n.Method, n.GID())
	}
}

func TestEndToEndUnknownMethodError(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	_, err = c.Call(ctx, "aria2.noSuchMethod", []any{}, 0)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != -32601 {
		t.Fatalf("expected method-not-found, got %v", err)
	}
}

func TestEndToEndServerDropFailsPending(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()

	received := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv.Register("aria2.pause", func(params json.RawMessage) (any, *rpc.Error) {
		close(received)
		<-release
		return "g", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Pause(ctx, "gid123") }()
	<-received
	srv.DropConnections()

	if err := <-done; !errors.Is(err, ErrConnClosed) {
		t.Fatalf("expected ErrConnClosed, got %v", err)
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not observe the disconnect")
	}
	if c.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %v", c.State())
	}
}

func TestEndToEndMalformedFramesIgnored(t *testing.T) {
	srv := rpctest.NewServer()
	defer srv.Close()
	srv.Register("aria2.getGlobalStat", func(params json.RawMessage) (any, *rpc.Error) {
		return map[string]string{"downloadSpeed": "0", "uploadSpeed": "0", "numActive": "0", "numWaiting": "0", "numStopped": "0"}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL(), WithLogger(discardLogger{}))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	srv.SendRaw([]byte(`{not json at all`))
	srv.SendRaw([]byte(`{"jsonrpc":"2.0"}`))

	if _, err := c.GetGlobalStat(ctx); err != nil {
		t.Fatalf("call after malformed frames: %v", err)
	}
}
