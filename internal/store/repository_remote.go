package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-core/models"
)

// ApplyRemote lands one remote change. The local record is located by server
// id and everything happens under its lock in a single transaction:
//   - no local copy: a remote tombstone is skipped, anything else becomes a
//     new clean record;
//   - a clean local copy is overwritten (or purged for a remote tombstone)
//     unless the change carries nothing new;
//   - a dirty local copy or a local tombstone goes through policy and the
//     resolution is appended to the conflict log.
func (r *recordRepository) ApplyRemote(ctx context.Context, change models.RemoteChange, policy ConflictPolicy) (ApplyResult, error) {
	if change.ServerID == "" {
		return ApplyResult{}, fmt.Errorf("%w: remote change without server id", ErrValidation)
	}

	var localID string
	err := r.QueryRowContext(ctx, selectLocalIDByServerID, change.ServerID).Scan(&localID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if change.Deleted {
			return ApplyResult{Action: ApplySkipped}, nil
		}
		return r.createFromRemote(ctx, change)
	case err != nil:
		r.logger.Err(err).
			Str("func", "recordRepository.ApplyRemote").
			Str("server_id", change.ServerID).
			Msg("failed to look up record by server id")
		return ApplyResult{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	unlock := r.locks.lock(localID)
	defer unlock()

	var (
		result ApplyResult
		event  models.ChangeKind
	)
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		cur, state, err := r.getTx(ctx, tx, selectRecordByLocalID, localID)
		if err != nil {
			return err
		}
		result = ApplyResult{Action: ApplySkipped, Record: cur, State: state}

		if state.Dirty || state.Deleted {
			if knownRemoteState(cur, state, change) {
				return nil
			}
			event, err = r.resolveTx(ctx, tx, cur, state, change, policy, &result)
			return err
		}

		if change.Deleted {
			result.Action = ApplyPurged
			event = models.ChangeDeleted
			return r.deleteTx(ctx, tx, localID)
		}

		if cur.Payload.Equal(change.Payload) {
			// nothing new for the user; keep the version token in step
			version := max(cur.Version, change.Version)
			if version == cur.Version && state.RemoteUpdatedAt != nil && !change.UpdatedAt.After(*state.RemoteUpdatedAt) {
				return nil
			}
			if version != cur.Version {
				next := cur
				next.Version = version
				if err = r.updateTx(ctx, tx, next); err != nil {
					return err
				}
				result.Record = next
			}
			if err = r.tracker.markSyncedTx(ctx, tx, localID, version); err != nil {
				return err
			}
			return r.tracker.setBaseTx(ctx, tx, localID, change.Payload, change.UpdatedAt)
		}

		next := cur
		next.Payload = change.Payload.Clone()
		if change.Type != "" {
			next.Type = change.Type
		}
		next.Version = max(cur.Version+1, change.Version)
		next.UpdatedAt = r.tick(cur.UpdatedAt)
		if err = r.updateTx(ctx, tx, next); err != nil {
			return err
		}
		if err = r.tracker.markSyncedTx(ctx, tx, localID, next.Version); err != nil {
			return err
		}
		if err = r.tracker.setBaseTx(ctx, tx, localID, change.Payload, change.UpdatedAt); err != nil {
			return err
		}

		result.Action = ApplyUpdated
		result.Record = next
		event = models.ChangeUpdated
		return nil
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.ApplyRemote").
			Str("local_id", localID).
			Str("server_id", change.ServerID).
			Msg("failed to apply remote change")
		return ApplyResult{}, err
	}

	if result.Action != ApplyPurged {
		if st, stErr := r.tracker.stateTx(ctx, r.DB, localID); stErr == nil {
			result.State = st
		}
	}
	if event != "" {
		r.publish(result.Record, event)
	}
	return result, nil
}

func (r *recordRepository) createFromRemote(ctx context.Context, change models.RemoteChange) (ApplyResult, error) {
	rec := models.Record{
		LocalID:   r.ids.NewID(),
		ServerID:  change.ServerID,
		Type:      change.Type,
		Payload:   change.Payload.Clone(),
		Version:   max(1, change.Version),
		UpdatedAt: r.tick(time.Time{}),
	}

	unlock := r.locks.lock(rec.LocalID)
	defer unlock()

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.insertTx(ctx, tx, rec); err != nil {
			return err
		}
		return r.tracker.insertSyncedTx(ctx, tx, rec.LocalID, rec.Version, change.Payload, change.UpdatedAt)
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.createFromRemote").
			Str("server_id", change.ServerID).
			Msg("failed to create record from remote change")
		return ApplyResult{}, err
	}

	state, err := r.tracker.stateTx(ctx, r.DB, rec.LocalID)
	if err != nil {
		return ApplyResult{}, err
	}

	r.publish(rec, models.ChangeCreated)
	return ApplyResult{Action: ApplyCreated, Record: rec.Clone(), State: state}, nil
}

// resolveTx reconciles a locally modified record with change and writes the
// outcome. It returns the change kind to announce, if any.
func (r *recordRepository) resolveTx(
	ctx context.Context,
	tx *sql.Tx,
	cur models.Record,
	state models.SyncState,
	change models.RemoteChange,
	policy ConflictPolicy,
	result *ApplyResult,
) (models.ChangeKind, error) {
	res := policy.Resolve(ctx, cur, state, change)
	if res.ResolvedAt.IsZero() {
		res.ResolvedAt = r.now().UTC()
	}

	id, err := r.meta.appendConflictTx(ctx, tx, res)
	if err != nil {
		return "", err
	}
	res.ID = id
	result.Resolution = &res
	result.Action = ApplyResolved

	var event models.ChangeKind
	switch {
	case res.Reason == models.ReasonBothTombstones,
		res.Winner == models.WinnerRemote && change.Deleted:
		if !state.Deleted {
			event = models.ChangeDeleted
		}
		result.Action = ApplyPurged
		return event, r.deleteTx(ctx, tx, cur.LocalID)

	case state.Deleted:
		// tombstone kept; the deletion is pushed again
		if err = r.tracker.markDirtyTx(ctx, tx, cur.LocalID); err != nil {
			return "", err
		}
		return "", r.tracker.setBaseTx(ctx, tx, cur.LocalID, change.Payload, change.UpdatedAt)
	}

	merged := res.MergedPayload
	if merged == nil {
		if res.Winner == models.WinnerRemote {
			merged = change.Payload
		} else {
			merged = cur.Payload
		}
	}
	clean := res.Winner == models.WinnerRemote && merged.Equal(change.Payload)

	next := cur
	next.Payload = merged.Clone()
	if res.Winner == models.WinnerRemote && change.Type != "" {
		next.Type = change.Type
	}
	if clean {
		next.Version = max(cur.Version+1, change.Version)
	} else {
		// the next push must carry a token newer than the server's
		next.Version = max(cur.Version+1, change.Version+1)
	}
	if !merged.Equal(cur.Payload) {
		next.UpdatedAt = r.tick(cur.UpdatedAt)
		event = models.ChangeUpdated
	}

	if err = r.updateTx(ctx, tx, next); err != nil {
		return "", err
	}
	if clean {
		err = r.tracker.markSyncedTx(ctx, tx, cur.LocalID, next.Version)
	} else {
		err = r.tracker.markDirtyTx(ctx, tx, cur.LocalID)
	}
	if err != nil {
		return "", err
	}
	if err = r.tracker.setBaseTx(ctx, tx, cur.LocalID, change.Payload, change.UpdatedAt); err != nil {
		return "", err
	}

	result.Record = next
	return event, nil
}

// knownRemoteState reports whether change only repeats the server state the
// record was last reconciled with, e.g. the echo of its own push. A change
// carrying a token at or past the local version is never an echo.
func knownRemoteState(cur models.Record, state models.SyncState, change models.RemoteChange) bool {
	if change.Deleted || state.RemoteUpdatedAt == nil || state.Base == nil {
		return false
	}
	if change.Version != 0 && change.Version >= cur.Version {
		return false
	}
	return !change.UpdatedAt.After(*state.RemoteUpdatedAt) && change.Payload.Equal(state.Base)
}
