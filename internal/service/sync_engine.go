package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-core/internal/adapter"
	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/retry"
	"github.com/MKhiriev/go-sync-core/internal/store"
	"github.com/MKhiriev/go-sync-core/models"
)

// DefaultPageLimit is the page size requested from GET /changes.
const DefaultPageLimit = 200

// EngineOption configures the sync engine.
type EngineOption func(*syncEngine)

// WithPageLimit sets the page size requested when pulling.
func WithPageLimit(limit int) EngineOption {
	return func(e *syncEngine) {
		e.pageLimit = limit
	}
}

// WithRetryConfig sets how transient remote failures are retried in a pass.
func WithRetryConfig(cfg *retry.Config) EngineOption {
	return func(e *syncEngine) {
		e.retry = cfg
	}
}

// WithEngineClock replaces time.Now for report timestamps.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *syncEngine) {
		e.now = now
	}
}

type syncEngine struct {
	records  store.RecordStore
	tracker  store.SyncStateTracker
	meta     store.SyncMetaStorage
	remote   adapter.RemoteAdapter
	resolver store.ConflictPolicy

	retry     *retry.Config
	pageLimit int
	now       func() time.Time
	logger    *logger.Logger
}

// NewSyncEngine creates a [SyncEngine] over storages talking to remote.
// Conflicts met while pulling or pushing are settled by resolver.
func NewSyncEngine(storages *store.Storages, remote adapter.RemoteAdapter, resolver store.ConflictPolicy, log *logger.Logger, opts ...EngineOption) SyncEngine {
	e := &syncEngine{
		records:   storages.Records,
		tracker:   storages.Tracker,
		meta:      storages.Meta,
		remote:    remote,
		resolver:  resolver,
		retry:     retry.RemoteDefaults(),
		pageLimit: DefaultPageLimit,
		now:       time.Now,
		logger:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunPass implements [SyncEngine].
func (e *syncEngine) RunPass(ctx context.Context, trigger models.SyncTrigger) models.PassReport {
	report := models.PassReport{Trigger: trigger, StartedAt: e.now().UTC()}

	log := &logger.Logger{Logger: e.logger.With().
		Str("trigger", string(trigger)).
		Time("pass_started_at", report.StartedAt).
		Logger()}
	ctx = log.WithContext(ctx)

	var errs []error
	if err := e.pull(ctx, &report); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrPullFailed, err))
	}
	if ctx.Err() == nil {
		if err := e.push(ctx, &report); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrPushFailed, err))
		}
	}

	switch {
	case ctx.Err() != nil:
		report.Outcome = models.PassAborted
		errs = append(errs, fmt.Errorf("%w: %w", ErrPassAborted, context.Cause(ctx)))
	case len(errs) > 0 || len(report.Failures) > 0:
		report.Outcome = models.PassPartialFailure
	default:
		report.Outcome = models.PassSuccess
	}
	if err := errors.Join(errs...); err != nil {
		report.Error = err.Error()
	}
	report.FinishedAt = e.now().UTC()

	if err := e.meta.SaveReport(context.WithoutCancel(ctx), report); err != nil {
		log.Err(err).
			Str("func", "syncEngine.RunPass").
			Msg("failed to persist pass report")
	}

	log.Info().
		Str("func", "syncEngine.RunPass").
		Str("outcome", string(report.Outcome)).
		Int("pulled", report.Pulled).
		Int("pages", report.Pages).
		Int("pushed", report.Pushed()).
		Int("conflicts", report.Conflicts).
		Int("failures", len(report.Failures)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("sync pass finished")

	return report
}

// pull applies remote pages from the persisted cursor. The cursor moves only
// after every change of a page has been applied.
func (e *syncEngine) pull(ctx context.Context, report *models.PassReport) error {
	log := logger.FromContext(ctx)

	cursor, err := e.meta.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	report.Cursor = cursor

	for {
		page, err := retry.Do(ctx, e.retry, log, "pull changes", adapter.IsTransient,
			func(ctx context.Context) (models.ChangesPage, error) {
				return e.remote.PullChanges(ctx, cursor, e.pageLimit)
			})
		if err != nil {
			return err
		}

		for _, change := range page.Changes {
			if err = ctx.Err(); err != nil {
				return err
			}
			if err = e.applyPulled(ctx, change, report); err != nil {
				return err
			}
		}
		report.Pages++

		next := page.NextCursor
		if next == "" || next == cursor {
			return nil
		}
		// a fully applied page is committed even if the pass is being cancelled
		if err = e.meta.SetCursor(context.WithoutCancel(ctx), next); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
		cursor = next
		report.Cursor = next

		if !morePages(page) {
			return nil
		}
	}
}

// morePages reports whether the feed may continue past page. The cursor has
// already been checked to advance.
func morePages(page models.ChangesPage) bool {
	if page.HasMore != nil {
		return *page.HasMore
	}
	return len(page.Changes) > 0
}

func (e *syncEngine) applyPulled(ctx context.Context, change models.RemoteChange, report *models.PassReport) error {
	res, err := e.records.ApplyRemote(ctx, change, e.resolver)
	if errors.Is(err, store.ErrValidation) {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("func", "syncEngine.applyPulled").
			Str("server_id", change.ServerID).
			Msg("skipping malformed remote change")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply remote change %s: %w", change.ServerID, err)
	}

	if res.Action != store.ApplySkipped {
		report.Pulled++
	}
	if res.Resolution != nil {
		report.Conflicts++
	}
	return nil
}

// push sends dirty records oldest first. A record that cannot be pushed is
// left dirty with its error recorded and the pass moves on.
func (e *syncEngine) push(ctx context.Context, report *models.PassReport) error {
	log := logger.FromContext(ctx)

	dirty, err := e.tracker.ListDirty(ctx)
	if err != nil {
		return fmt.Errorf("list dirty: %w", err)
	}

	for _, entry := range dirty {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = e.pushRecord(ctx, entry.LocalID, report, true)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Err(err).
			Str("func", "syncEngine.push").
			Str("local_id", entry.LocalID).
			Bool("transient", adapter.IsTransient(err)).
			Msg("failed to push record")

		report.Failures = append(report.Failures, models.RecordFailure{LocalID: entry.LocalID, Error: err.Error()})
		if ferr := e.tracker.RecordFailure(ctx, entry.LocalID, err); ferr != nil && !errors.Is(ferr, store.ErrNotFound) {
			log.Err(ferr).
				Str("func", "syncEngine.push").
				Str("local_id", entry.LocalID).
				Msg("failed to record push failure")
		}
	}
	return nil
}

func (e *syncEngine) pushRecord(ctx context.Context, localID string, report *models.PassReport, allowRepush bool) error {
	rec, err := e.records.Get(ctx, localID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	state, err := e.tracker.State(ctx, localID)
	if err != nil {
		return err
	}
	if !state.Dirty {
		// settled by the pull phase
		return nil
	}

	switch {
	case state.Deleted && !rec.HasServerID():
		return e.purgeLocal(ctx, rec, report)
	case state.Deleted:
		return e.pushDelete(ctx, rec, report)
	case !rec.HasServerID():
		return e.pushCreate(ctx, rec, report)
	default:
		return e.pushUpdate(ctx, rec, report, allowRepush)
	}
}

// purgeLocal drops a tombstone the server never heard of.
func (e *syncEngine) purgeLocal(ctx context.Context, rec models.Record, report *models.PassReport) error {
	ok, err := e.tracker.ClearDirty(ctx, rec.LocalID, rec.Version)
	if err != nil || !ok {
		return err
	}
	if err = e.records.Purge(ctx, rec.LocalID); err != nil {
		return err
	}
	report.Purged++
	return nil
}

func (e *syncEngine) pushDelete(ctx context.Context, rec models.Record, report *models.PassReport) error {
	_, err := retry.Do(ctx, e.retry, logger.FromContext(ctx), "delete record", adapter.IsTransient,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.remote.Delete(ctx, rec.ServerID)
		})
	if err != nil {
		return err
	}
	report.Deleted++

	ok, err := e.tracker.ClearDirty(ctx, rec.LocalID, rec.Version)
	if err != nil || !ok {
		return err
	}
	if err = e.records.Purge(ctx, rec.LocalID); err != nil {
		return err
	}
	report.Purged++
	return nil
}

func (e *syncEngine) pushCreate(ctx context.Context, rec models.Record, report *models.PassReport) error {
	resp, err := retry.Do(ctx, e.retry, logger.FromContext(ctx), "create record", adapter.IsTransient,
		func(ctx context.Context) (models.CreateRecordResponse, error) {
			return e.remote.Create(ctx, models.CreateRecordRequest{
				LocalID: rec.LocalID,
				Type:    rec.Type,
				Payload: rec.Payload,
				Version: rec.Version,
			})
		})
	if err != nil {
		return err
	}
	report.Created++

	if err = e.tracker.AssignServerID(ctx, rec.LocalID, resp.ServerID); err != nil {
		return err
	}
	return e.acknowledge(ctx, rec, resp.UpdatedAt)
}

func (e *syncEngine) pushUpdate(ctx context.Context, rec models.Record, report *models.PassReport, allowRepush bool) error {
	resp, err := retry.Do(ctx, e.retry, logger.FromContext(ctx), "update record", adapter.IsTransient,
		func(ctx context.Context) (models.UpdateRecordResponse, error) {
			return e.remote.Update(ctx, rec.ServerID, models.UpdateRecordRequest{
				Type:    rec.Type,
				Payload: rec.Payload,
				Version: rec.Version,
			})
		})

	var stale *adapter.StaleTokenError
	switch {
	case errors.As(err, &stale):
		res, err := e.records.ApplyRemote(ctx, models.RemoteChange{
			ServerID:  rec.ServerID,
			Payload:   stale.Current.CurrentPayload,
			UpdatedAt: stale.Current.CurrentUpdatedAt,
			Deleted:   stale.Current.Deleted,
			Version:   stale.Current.CurrentVersion,
		}, e.resolver)
		if err != nil {
			return err
		}
		if res.Resolution != nil {
			report.Conflicts++
		}
		if res.Action == store.ApplyPurged || !res.State.Dirty || !allowRepush {
			return nil
		}
		// the local side kept something the server does not have yet
		return e.pushRecord(ctx, rec.LocalID, report, false)

	case errors.Is(err, adapter.ErrNotFound):
		// deleted on the server; a remote tombstone wins over the local edit
		res, err := e.records.ApplyRemote(ctx, models.RemoteChange{
			ServerID:  rec.ServerID,
			Deleted:   true,
			UpdatedAt: e.now().UTC(),
		}, e.resolver)
		if err != nil {
			return err
		}
		if res.Resolution != nil {
			report.Conflicts++
		}
		return nil

	case err != nil:
		return err
	}

	report.Updated++
	return e.acknowledge(ctx, rec, resp.UpdatedAt)
}

// acknowledge records the pushed payload as the server state and clears the
// dirty flag unless rec was modified while the request was in flight.
func (e *syncEngine) acknowledge(ctx context.Context, rec models.Record, remoteUpdatedAt time.Time) error {
	if remoteUpdatedAt.IsZero() {
		remoteUpdatedAt = e.now().UTC()
	}
	if err := e.tracker.SetBase(ctx, rec.LocalID, rec.Payload, remoteUpdatedAt); err != nil {
		return err
	}
	if _, err := e.tracker.ClearDirty(ctx, rec.LocalID, rec.Version); err != nil {
		return err
	}
	return nil
}
