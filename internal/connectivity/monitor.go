// Package connectivity turns raw reachability signals into a debounced
// Online/Offline status, probes the remote while it is not reachable and
// answers navigation-guard checks.
package connectivity

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/notify"
	"github.com/MKhiriev/go-sync-core/models"
)

// DefaultGraceWindow is how long the signal has to stay negative before
// Offline is reported.
const DefaultGraceWindow = 2 * time.Second

type timer interface {
	Stop() bool
}

// Monitor debounces reachability signals. A negative signal is reported as
// Offline only after it has been continuously negative for the grace window;
// a positive signal is reported as Online at once.
type Monitor struct {
	mu        sync.Mutex
	grace     time.Duration
	now       func() time.Time
	afterFunc func(time.Duration, func()) timer
	pending   timer
	gen       uint64
	closed    bool

	last   atomic.Pointer[models.StatusEvent]
	events *notify.Broadcaster[models.StatusEvent]
	logger *logger.Logger
}

// MonitorOption configures a [Monitor].
type MonitorOption func(*Monitor)

// WithMonitorClock replaces time.Now.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.now = now
	}
}

// withAfterFunc replaces time.AfterFunc in tests.
func withAfterFunc(f func(time.Duration, func()) timer) MonitorOption {
	return func(m *Monitor) {
		m.afterFunc = f
	}
}

// NewMonitor creates a Monitor in the Unknown state. A non-positive grace
// falls back to [DefaultGraceWindow].
func NewMonitor(grace time.Duration, log *logger.Logger, opts ...MonitorOption) *Monitor {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	m := &Monitor{
		grace: grace,
		now:   time.Now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		events: notify.NewBroadcaster[models.StatusEvent](),
		logger: log,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.last.Store(&models.StatusEvent{Status: models.StatusUnknown, Previous: models.StatusUnknown})
	return m
}

// Observe ingests one reachability signal.
func (m *Monitor) Observe(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	if reachable {
		m.cancelPendingLocked()
		if m.CurrentStatus() != models.StatusOnline {
			m.transitionLocked(models.StatusOnline)
		}
		return
	}

	if m.CurrentStatus() == models.StatusOffline || m.pending != nil {
		return
	}
	m.gen++
	gen := m.gen
	m.pending = m.afterFunc(m.grace, func() { m.expire(gen) })
}

// CurrentStatus returns the last reported status without blocking.
func (m *Monitor) CurrentStatus() models.ConnectivityStatus {
	return m.last.Load().Status
}

// Last returns the last reported event. Its At is zero while the status is
// still Unknown.
func (m *Monitor) Last() models.StatusEvent {
	return *m.last.Load()
}

// Subscribe returns a stream of status transitions reported after the call.
func (m *Monitor) Subscribe() (<-chan models.StatusEvent, func()) {
	return m.events.Subscribe()
}

// Close stops the debounce timer and ends every subscription.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.cancelPendingLocked()
	m.events.Close()
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || gen != m.gen || m.pending == nil {
		return
	}
	m.pending = nil
	m.transitionLocked(models.StatusOffline)
}

func (m *Monitor) cancelPendingLocked() {
	if m.pending == nil {
		return
	}
	m.pending.Stop()
	m.pending = nil
	m.gen++
}

func (m *Monitor) transitionLocked(status models.ConnectivityStatus) {
	prev := m.last.Load()

	at := m.now().UTC()
	if !at.After(prev.At) {
		at = prev.At.Add(time.Nanosecond)
	}

	ev := models.StatusEvent{Status: status, Previous: prev.Status, At: at}
	m.last.Store(&ev)
	m.events.Publish(ev)

	if m.logger != nil {
		m.logger.Info().
			Str("func", "Monitor.transition").
			Str("from", string(prev.Status)).
			Str("to", string(status)).
			Msg("connectivity changed")
	}
}
