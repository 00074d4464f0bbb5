package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/notify"
	"github.com/MKhiriev/go-sync-core/internal/retry"
	"github.com/MKhiriev/go-sync-core/models"
)

const (
	DefaultSyncInterval = 60 * time.Second
	DefaultBackoffBase  = 5 * time.Second
	DefaultBackoffMax   = 5 * time.Minute
)

// SchedulerOption configures the sync scheduler.
type SchedulerOption func(*syncScheduler)

// WithSchedulerClock replaces time.Now for backoff deadlines.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *syncScheduler) {
		s.now = now
	}
}

// WithLastReport seeds LastOutcome, e.g. with the report persisted by the
// previous run.
func WithLastReport(report *models.PassReport) SchedulerOption {
	return func(s *syncScheduler) {
		if report != nil {
			r := *report
			s.last.Store(&r)
		}
	}
}

// WithBackoff replaces the failure backoff.
func WithBackoff(b *retry.FullJitter) SchedulerOption {
	return func(s *syncScheduler) {
		s.backoff = b
	}
}

type syncScheduler struct {
	engine   SyncEngine
	status   StatusSource
	interval time.Duration
	backoff  *retry.FullJitter
	now      func() time.Time

	mu              sync.Mutex
	runCtx          context.Context
	running         bool
	pending         bool
	pendingExplicit bool
	deferred        bool
	cancelPass      context.CancelFunc
	notBefore       time.Time
	retryTimer      *time.Timer
	passes          sync.WaitGroup

	last    atomic.Pointer[models.PassReport]
	reports *notify.Broadcaster[models.PassReport]
	logger  *logger.Logger
}

// NewSyncScheduler creates a [SyncScheduler]. Non-positive durations fall
// back to [DefaultSyncInterval], [DefaultBackoffBase] and
// [DefaultBackoffMax].
func NewSyncScheduler(engine SyncEngine, status StatusSource, interval, backoffBase, backoffMax time.Duration, log *logger.Logger, opts ...SchedulerOption) SyncScheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if backoffMax <= 0 {
		backoffMax = DefaultBackoffMax
	}
	s := &syncScheduler{
		engine:   engine,
		status:   status,
		interval: interval,
		backoff:  retry.NewFullJitter(backoffBase, backoffMax),
		now:      time.Now,
		reports:  notify.NewBroadcaster[models.PassReport](),
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run implements [SyncScheduler].
func (s *syncScheduler) Run(ctx context.Context) {
	events, unsubscribe := s.status.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	runCtx, stop := context.WithCancel(ctx)
	s.mu.Lock()
	s.runCtx = runCtx
	s.mu.Unlock()

	defer s.shutdown(stop)

	if s.online() {
		s.onOnline()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Status {
			case models.StatusOffline:
				s.cancelRunning()
			case models.StatusOnline:
				s.onOnline()
			}

		case <-ticker.C:
			s.trigger(models.TriggerPeriodic)
		}
	}
}

// RequestSync implements [SyncScheduler].
func (s *syncScheduler) RequestSync() {
	s.trigger(models.TriggerExplicit)
}

// LastOutcome implements [SyncScheduler].
func (s *syncScheduler) LastOutcome() (models.PassReport, bool) {
	if r := s.last.Load(); r != nil {
		return *r, true
	}
	return models.PassReport{}, false
}

// Reports implements [SyncScheduler].
func (s *syncScheduler) Reports() (<-chan models.PassReport, func()) {
	return s.reports.Subscribe()
}

// onOnline runs the connectivity pass, or the explicit request that was
// deferred while offline.
func (s *syncScheduler) onOnline() {
	s.mu.Lock()
	deferred := s.deferred
	s.deferred = false
	s.mu.Unlock()

	if deferred {
		s.trigger(models.TriggerExplicit)
		return
	}
	s.trigger(models.TriggerConnectivity)
}

func (s *syncScheduler) online() bool {
	return s.status.CurrentStatus() == models.StatusOnline
}

// trigger starts a pass, or folds the request into the pending follow-up
// when one is running.
func (s *syncScheduler) trigger(trigger models.SyncTrigger) {
	explicit := trigger == models.TriggerExplicit
	bypassBackoff := explicit || trigger == models.TriggerRetry

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx == nil || s.runCtx.Err() != nil {
		if explicit {
			s.deferred = true
		}
		return
	}
	if !s.online() {
		if explicit {
			s.deferred = true
		}
		s.debug(trigger, "offline, trigger deferred")
		return
	}
	if !bypassBackoff && s.now().Before(s.notBefore) {
		s.debug(trigger, "backing off")
		return
	}
	if s.running {
		s.pending = true
		s.pendingExplicit = s.pendingExplicit || bypassBackoff
		return
	}

	s.startLocked(trigger)
}

func (s *syncScheduler) startLocked(trigger models.SyncTrigger) {
	passCtx, cancel := context.WithCancel(s.runCtx)
	s.running = true
	s.cancelPass = cancel
	s.passes.Go(func() {
		s.loop(passCtx, cancel, trigger)
	})
}

// loop runs a pass and then the coalesced follow-up, if any.
func (s *syncScheduler) loop(ctx context.Context, cancel context.CancelFunc, trigger models.SyncTrigger) {
	for {
		report := s.engine.RunPass(ctx, trigger)
		cancel()
		s.finish(report)

		s.mu.Lock()
		follow := s.pending && s.runCtx.Err() == nil && s.online() &&
			(s.pendingExplicit || !s.now().Before(s.notBefore))
		s.pending = false
		s.pendingExplicit = false
		if !follow {
			s.running = false
			s.cancelPass = nil
			s.mu.Unlock()
			return
		}
		ctx, cancel = context.WithCancel(s.runCtx)
		s.cancelPass = cancel
		trigger = models.TriggerFollowUp
		s.mu.Unlock()
	}
}

// finish publishes report and moves the backoff.
func (s *syncScheduler) finish(report models.PassReport) {
	s.last.Store(&report)
	s.reports.Publish(report)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}

	if report.Outcome == models.PassSuccess {
		s.backoff.Reset()
		s.notBefore = time.Time{}
		return
	}

	delay := s.backoff.Next()
	s.notBefore = s.now().Add(delay)
	s.retryTimer = time.AfterFunc(delay, func() {
		s.trigger(models.TriggerRetry)
	})

	if s.logger != nil {
		s.logger.Warn().
			Str("func", "syncScheduler.finish").
			Str("outcome", string(report.Outcome)).
			Int("attempt", s.backoff.Attempts()).
			Dur("retry_in", delay).
			Msg("sync pass did not succeed, backing off")
	}
}

func (s *syncScheduler) cancelRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = false
	s.pendingExplicit = false
	if s.cancelPass != nil {
		s.cancelPass()
	}
}

func (s *syncScheduler) shutdown(stop context.CancelFunc) {
	stop()
	s.passes.Wait()

	s.mu.Lock()
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.mu.Unlock()

	s.reports.Close()
}

func (s *syncScheduler) debug(trigger models.SyncTrigger, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.Debug().
		Str("func", "syncScheduler.trigger").
		Str("trigger", string(trigger)).
		Msg(msg)
}
