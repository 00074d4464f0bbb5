package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/MKhiriev/go-sync-core/internal/adapter"
	"github.com/MKhiriev/go-sync-core/internal/config"
	"github.com/MKhiriev/go-sync-core/internal/connectivity"
	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/retry"
	"github.com/MKhiriev/go-sync-core/internal/service"
	"github.com/MKhiriev/go-sync-core/internal/store"
	"github.com/MKhiriev/go-sync-core/internal/validators"
	"github.com/MKhiriev/go-sync-core/internal/workers"
	"github.com/MKhiriev/go-sync-core/models"
)

var (
	// ErrAlreadyStarted is returned by [App.Start] on a second call.
	ErrAlreadyStarted = errors.New("client app already started")
	// ErrClosed is returned by [App.Start] after [App.Close].
	ErrClosed = errors.New("client app closed")
)

// Option customises [NewApp].
type Option func(*options)

type options struct {
	remote       adapter.RemoteAdapter
	storeOpts    []store.Option
	monitorOpts  []connectivity.MonitorOption
	engineOpts   []service.EngineOption
	schedulerOps []service.SchedulerOption
}

// WithRemoteAdapter replaces the HTTP remote adapter. The caller is then
// responsible for reporting reachability through [App.ObserveReachability].
func WithRemoteAdapter(remote adapter.RemoteAdapter) Option {
	return func(o *options) { o.remote = remote }
}

// WithStoreOptions passes options to the local store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// WithMonitorOptions passes options to the connectivity monitor.
func WithMonitorOptions(opts ...connectivity.MonitorOption) Option {
	return func(o *options) { o.monitorOpts = append(o.monitorOpts, opts...) }
}

// WithEngineOptions passes options to the sync engine.
func WithEngineOptions(opts ...service.EngineOption) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, opts...) }
}

// WithSchedulerOptions passes options to the sync scheduler.
func WithSchedulerOptions(opts ...service.SchedulerOption) Option {
	return func(o *options) { o.schedulerOps = append(o.schedulerOps, opts...) }
}

// App is the sync core as seen by a user interface.
type App struct {
	db        *store.DB
	storages  *store.Storages
	monitor   *connectivity.Monitor
	guard     *connectivity.Guard
	scheduler service.SyncScheduler
	workers   *workers.Workers

	mu        sync.Mutex
	started   bool
	closed    bool
	stop      context.CancelFunc
	closeOnce sync.Once
	closeErr  error

	logger *logger.Logger
}

// NewApp opens the local database and wires every component. Nothing runs
// in the background until [App.Start] or [App.Run].
func NewApp(ctx context.Context, cfg *config.ClientConfig, schemas *validators.SchemaRegistry, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Err(err).Str("func", "client.NewApp").Msg("error opening local storage")
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	storages := store.NewStorages(db, schemas, log, o.storeOpts...)
	monitor := connectivity.NewMonitor(cfg.Connectivity.GraceWindow, log.WithComponent("connectivity"), o.monitorOpts...)

	remote := o.remote
	if remote == nil {
		remote, err = adapter.NewHTTPRemoteAdapter(cfg.Adapter, log.WithComponent("adapter"), adapter.WithReachability(monitor))
		if err != nil {
			monitor.Close()
			storages.Close()
			db.Close()
			log.Err(err).Str("func", "client.NewApp").Msg("error creating remote adapter")
			return nil, fmt.Errorf("create remote adapter: %w", err)
		}
	}

	retryCfg := retry.RemoteDefaults()
	retryCfg.MaxRetries = cfg.Sync.MaxRetries

	engineOpts := append([]service.EngineOption{
		service.WithPageLimit(cfg.Sync.PageLimit),
		service.WithRetryConfig(retryCfg),
	}, o.engineOpts...)

	resolver := service.NewConflictResolver(schemas, log.WithComponent("resolver"))
	engine := service.NewSyncEngine(storages, remote, resolver, log.WithComponent("engine"), engineOpts...)

	schedulerOpts := o.schedulerOps
	last, err := storages.Meta.LastReport(ctx)
	if err != nil {
		log.Warn().Err(err).Str("func", "client.NewApp").Msg("could not load last pass report")
	} else if last != nil {
		schedulerOpts = append([]service.SchedulerOption{service.WithLastReport(last)}, schedulerOpts...)
	}

	scheduler := service.NewSyncScheduler(
		engine,
		monitor,
		cfg.Sync.Interval,
		cfg.Sync.BackoffBase,
		cfg.Sync.BackoffMax,
		log.WithComponent("scheduler"),
		schedulerOpts...,
	)
	prober := connectivity.NewProber(remote, monitor, cfg.Connectivity.ProbeInterval, cfg.Adapter.RequestTimeout, log.WithComponent("prober"))

	return &App{
		db:        db,
		storages:  storages,
		monitor:   monitor,
		guard:     connectivity.NewGuard(monitor),
		scheduler: scheduler,
		workers:   workers.NewWorkers(scheduler, prober),
		logger:    log,
	}, nil
}

// Start launches the scheduler and the connectivity prober and returns.
// They stop when ctx is done or on [App.Close].
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true

	ctx, a.stop = context.WithCancel(ctx)
	a.workers.Run(ctx)

	a.logger.Info().Str("func", "App.Start").Msg("sync core started")
	return nil
}

// Run implements [Client].
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Close()
}

// Close stops the background loops, waits for an in-flight pass to wind
// down and closes the local database. Change and status subscribers see
// their streams closed. Close is idempotent.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		stop := a.stop
		a.closed = true
		a.mu.Unlock()

		if stop != nil {
			stop()
		}
		a.workers.Wait()

		a.monitor.Close()
		a.storages.Close()
		if err := a.db.Close(); err != nil {
			a.logger.Err(err).Str("func", "App.Close").Msg("error closing local database")
			a.closeErr = fmt.Errorf("close local storage: %w", err)
			return
		}
		a.logger.Info().Str("func", "App.Close").Msg("sync core stopped")
	})
	return a.closeErr
}

// Put creates or updates a record. It is persisted and marked pending sync
// before Put returns.
func (a *App) Put(ctx context.Context, rec models.Record) (models.Record, error) {
	return a.storages.Records.Put(ctx, rec)
}

// Get returns a record by local id, tombstones included.
func (a *App) Get(ctx context.Context, localID string) (models.Record, error) {
	return a.storages.Records.Get(ctx, localID)
}

// Query returns the live records matching pred; nil matches all.
func (a *App) Query(ctx context.Context, pred func(models.Record) bool) (iter.Seq[models.Record], error) {
	return a.storages.Records.Query(ctx, pred)
}

// Delete tombstones a record. The deletion is pushed on the next pass.
func (a *App) Delete(ctx context.Context, localID string) (models.Record, error) {
	return a.storages.Records.SoftDelete(ctx, localID)
}

// SyncState returns the sync bookkeeping of a record.
func (a *App) SyncState(ctx context.Context, localID string) (models.SyncState, error) {
	return a.storages.Tracker.State(ctx, localID)
}

// Changes subscribes to the record change stream.
func (a *App) Changes() (<-chan models.ChangeEvent, func()) {
	return a.storages.Records.Subscribe()
}

// Status returns the current connectivity status.
func (a *App) Status() models.ConnectivityStatus {
	return a.monitor.CurrentStatus()
}

// SubscribeStatus subscribes to connectivity transitions.
func (a *App) SubscribeStatus() (<-chan models.StatusEvent, func()) {
	return a.monitor.Subscribe()
}

// ObserveReachability feeds a reachability signal to the monitor, e.g. from
// a platform network callback.
func (a *App) ObserveReachability(reachable bool) {
	a.monitor.Observe(reachable)
}

// Guard returns the navigation guard.
func (a *App) Guard() *connectivity.Guard {
	return a.guard
}

// RequestSync asks for a pass now. While offline the request is kept and
// served on reconnect.
func (a *App) RequestSync() {
	a.scheduler.RequestSync()
}

// LastOutcome returns the report of the latest pass, including one
// persisted by a previous run.
func (a *App) LastOutcome() (models.PassReport, bool) {
	return a.scheduler.LastOutcome()
}

// Reports subscribes to pass reports.
func (a *App) Reports() (<-chan models.PassReport, func()) {
	return a.scheduler.Reports()
}

// ListConflicts returns logged conflict resolutions newest first. Empty
// localID lists every record; zero limit means no limit.
func (a *App) ListConflicts(ctx context.Context, localID string, limit uint64) ([]models.ConflictResolution, error) {
	return a.storages.Meta.ListConflicts(ctx, localID, limit)
}
