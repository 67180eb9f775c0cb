package client

import "sync"

// TaskHooks are one-shot callbacks bound to a download gid. Exactly one of
// them fires, at most once, when a terminal event for that gid is observed;
// the registration is removed afterwards.
type TaskHooks struct {
	OnComplete func()
	OnError    func()
}

// Terminal notification methods and their hook class.
const (
	MethodDownloadStart      = "aria2.onDownloadStart"
	MethodDownloadPause      = "aria2.onDownloadPause"
	MethodDownloadStop       = "aria2.onDownloadStop"
	MethodDownloadComplete   = "aria2.onDownloadComplete"
	MethodDownloadError      = "aria2.onDownloadError"
	MethodBtDownloadComplete = "aria2.onBtDownloadComplete"
)

type hookClass int

const (
	classComplete hookClass = iota
	classError
)

// terminalClass maps a notification method to a hook class. A stopped
// download never completed, so onDownloadStop counts as error-class.
func terminalClass(method string) (hookClass, bool) {
	switch method {
	case MethodDownloadComplete, MethodBtDownloadComplete:
		return classComplete, true
	case MethodDownloadError, MethodDownloadStop:
		return classError, true
	default:
		return 0, false
	}
}

// IsTerminalEvent reports whether a notification method signifies a download
// reached a final state.
func IsTerminalEvent(method string) bool {
	_, ok := terminalClass(method)
	return ok
}

// hookManager holds at most one live registration per gid and consumes its
// own bus subscription for the lifetime of the connection.
type hookManager struct {
	client *Client
	mu     sync.Mutex
	regs   map[string]*TaskHooks
}

func newHookManager(c *Client) *hookManager {
	return &hookManager{
		client: c,
		regs:   make(map[string]*TaskHooks),
	}
}

// run processes notifications until the bus closes. Registrations still live
// at that point are abandoned without firing either callback.
func (m *hookManager) run(sub *Subscription) {
	for n := range sub.Events() {
		class, ok := terminalClass(n.Method)
		if !ok {
			continue
		}
		gid := n.GID()
		if gid == "" {
			continue
		}
		m.mu.Lock()
		hooks, ok := m.regs[gid]
		if ok {
			delete(m.regs, gid)
		}
		m.mu.Unlock()
		if !ok {
			continue
		}
		cb := hooks.OnComplete
		if class == classError {
			cb = hooks.OnError
		}
		if cb == nil {
			continue
		}
		// Callbacks run on their own goroutine so a slow or panicking hook
		// never stalls dispatch for other downloads.
		go m.invoke(gid, cb)
	}
	m.mu.Lock()
	m.regs = make(map[string]*TaskHooks)
	m.mu.Unlock()
}

func (m *hookManager) invoke(gid string, cb func()) {
	defer func() {
		if r := recover(); r != nil {
			m.client.logf("hook for gid %s panicked: %v", gid, r)
		}
	}()
	cb()
}

func (m *hookManager) set(gid string, hooks *TaskHooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hooks == nil || (hooks.OnComplete == nil && hooks.OnError == nil) {
		delete(m.regs, gid)
		return
	}
	m.regs[gid] = hooks
}

// SetHooks registers one-shot callbacks for a gid. Registering again for the
// same gid replaces the previous registration; its callbacks are discarded
// without firing. Passing nil (or empty) hooks withdraws the registration.
// If the connection closes before a terminal event for the gid is observed,
// the registration is abandoned and neither callback fires.
func (c *Client) SetHooks(gid string, hooks *TaskHooks) {
	if gid == "" {
		return
	}
	c.hooks.set(gid, hooks)
}
