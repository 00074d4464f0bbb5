package connectivity

import (
	"context"
	"errors"
	"time"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/models"
)

// DefaultProbeInterval is the pause between probes while not online.
const DefaultProbeInterval = 5 * time.Second

// Pinger checks that the remote answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober dials the remote while the monitor is not Online and feeds the
// result back into it. It stays idle while Online; the adapter's own traffic
// reports failures from then on.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
}

// NewProber creates a Prober. A non-positive interval falls back to
// [DefaultProbeInterval]; timeout bounds every probe and defaults to the
// interval.
func NewProber(pinger Pinger, monitor *Monitor, interval, timeout time.Duration, log *logger.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &Prober{
		pinger:   pinger,
		monitor:  monitor,
		interval: interval,
		timeout:  timeout,
		logger:   log,
	}
}

// Run probes until ctx is done or the monitor is closed. The first probe is
// sent right away unless the monitor is already Online.
func (p *Prober) Run(ctx context.Context) {
	events, cancel := p.monitor.Subscribe()
	defer cancel()

	t := time.NewTimer(0)
	defer t.Stop()
	armed := true
	if p.monitor.CurrentStatus() == models.StatusOnline {
		t.Stop()
		armed = false
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			switch {
			case ev.Status == models.StatusOnline && armed:
				t.Stop()
				armed = false
			case ev.Status != models.StatusOnline && !armed:
				t.Reset(p.interval)
				armed = true
			}

		case <-t.C:
			armed = false
			p.probe(ctx)
			if p.monitor.CurrentStatus() != models.StatusOnline {
				t.Reset(p.interval)
				armed = true
			}
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(ctx)
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if err != nil && p.logger != nil {
		p.logger.Debug().
			Err(err).
			Str("func", "Prober.probe").
			Msg("remote not reachable")
	}
	p.monitor.Observe(err == nil)
}
