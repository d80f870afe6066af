// Package connectivity tracks the terminal's online/offline state.
//
// The monitor is a two-state machine driven by platform network events
// fed through SetOnline. No intermediate "flaky" state is modeled: each
// individual request still fails or succeeds on its own and is handled
// by its caller. The one transition with behavior attached is
// Offline -> Online, which notifies reconnect subscribers so the offline
// transaction queue can drain.
package connectivity

import (
	"log/slog"
	"sync"
)

// Status is the connectivity state of the terminal.
type Status int

const (
	// Offline means the last known network state was unavailable.
	Offline Status = iota
	// Online means the network is believed to be available.
	Online
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Monitor tracks online/offline transitions and fans out reconnect
// notifications. Subscriptions are explicit (no ambient event listeners)
// so flush and refresh triggers are unit-testable without a real network
// stack.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []func()
	logger *slog.Logger
}

// NewMonitor creates a monitor in the given initial state.
func NewMonitor(initialOnline bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{online: initialOnline, logger: logger}
}

// Status returns the current connectivity state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online {
		return Online
	}
	return Offline
}

// IsOnline reports whether the terminal is online.
func (m *Monitor) IsOnline() bool {
	return m.Status() == Online
}

// SetOnline records a platform network-status event. An Offline -> Online
// transition invokes every reconnect subscriber, in subscription order,
// on the calling goroutine. Same-state events are no-ops and do not
// re-notify.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var subs []func()
	if online && !wasOnline {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	if online == wasOnline {
		return
	}

	m.logger.Info("connectivity changed", "status", boolToStatus(online).String())

	// Subscribers run outside the lock so they may query the monitor.
	for _, fn := range subs {
		fn()
	}
}

// OnReconnect registers fn to run on every Offline -> Online transition.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func boolToStatus(online bool) Status {
	if online {
		return Online
	}
	return Offline
}
