package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/internal/notify"
	"github.com/MKhiriev/go-sync-core/internal/utils"
	"github.com/MKhiriev/go-sync-core/internal/validators"
	"github.com/MKhiriev/go-sync-core/models"
)

// recordRepository is the SQLite-backed [RecordStore]. Sync bookkeeping is
// written through the tracker in the same transaction as the record itself.
type recordRepository struct {
	*DB
	tracker   *syncStateRepository
	meta      *syncMetaRepository
	validator validators.Validator
	locks     *stripedLocks
	ids       utils.IDGenerator
	now       func() time.Time
	changes   *notify.Broadcaster[models.ChangeEvent]
	logger    *logger.Logger
}

func (r *recordRepository) Subscribe() (<-chan models.ChangeEvent, func()) {
	return r.changes.Subscribe()
}

func (r *recordRepository) Put(ctx context.Context, rec models.Record) (models.Record, error) {
	if rec.LocalID == "" {
		rec.LocalID = r.ids.NewID()
	}

	if err := r.validator.Validate(ctx, rec); err != nil {
		r.logger.Debug().Err(err).
			Str("func", "recordRepository.Put").
			Str("local_id", rec.LocalID).
			Msg("record rejected by schema")
		return models.Record{}, fmt.Errorf("put record %s: %w", rec.LocalID, err)
	}

	unlock := r.locks.lock(rec.LocalID)
	defer unlock()

	var (
		stored models.Record
		kind   models.ChangeKind
	)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		cur, state, err := r.getTx(ctx, tx, selectRecordByLocalID, rec.LocalID)
		switch {
		case errors.Is(err, ErrNotFound):
			if rec.ServerID != "" {
				return fmt.Errorf("%w: server id of %s can only be assigned by sync", ErrConflict, rec.LocalID)
			}
			stored = models.Record{
				LocalID:   rec.LocalID,
				Type:      rec.Type,
				Payload:   rec.Payload.Clone(),
				Version:   1,
				UpdatedAt: r.tick(time.Time{}),
			}
			kind = models.ChangeCreated
			if err = r.insertTx(ctx, tx, stored); err != nil {
				return err
			}
			return r.tracker.insertDirtyTx(ctx, tx, stored.LocalID)

		case err != nil:
			return err
		}

		if state.Deleted {
			return fmt.Errorf("%w: record %s is deleted", ErrConflict, rec.LocalID)
		}
		if rec.ServerID != "" && rec.ServerID != cur.ServerID {
			return fmt.Errorf("%w: server id of %s can only be assigned by sync", ErrConflict, rec.LocalID)
		}

		stored = cur
		stored.Type = rec.Type
		stored.Payload = rec.Payload.Clone()
		stored.Version = cur.Version + 1
		stored.UpdatedAt = r.tick(cur.UpdatedAt)
		kind = models.ChangeUpdated

		if err = r.updateTx(ctx, tx, stored); err != nil {
			return err
		}
		return r.tracker.markDirtyTx(ctx, tx, stored.LocalID)
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.Put").
			Str("local_id", rec.LocalID).
			Msg("failed to put record")
		return models.Record{}, err
	}

	r.publish(stored, kind)
	return stored.Clone(), nil
}

func (r *recordRepository) Get(ctx context.Context, localID string) (models.Record, error) {
	rec, _, err := r.getTx(ctx, r.DB, selectRecordByLocalID, localID)
	return rec, err
}

func (r *recordRepository) GetByServerID(ctx context.Context, serverID string) (models.Record, error) {
	rec, _, err := r.getTx(ctx, r.DB, selectRecordByServerID, serverID)
	return rec, err
}

func (r *recordRepository) Query(ctx context.Context, pred func(models.Record) bool) (iter.Seq[models.Record], error) {
	query, args, err := buildListRecordsQuery(false)
	if err != nil {
		return nil, err
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).Str("func", "recordRepository.Query").Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	snapshot := make([]models.Record, 0, 32)
	for rows.Next() {
		rec, _, scanErr := scanRecordWithState(rows)
		if scanErr != nil {
			r.logger.Err(scanErr).Str("func", "recordRepository.Query").Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		snapshot = append(snapshot, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return func(yield func(models.Record) bool) {
		for _, rec := range snapshot {
			if pred != nil && !pred(rec) {
				continue
			}
			if !yield(rec.Clone()) {
				return
			}
		}
	}, nil
}

func (r *recordRepository) SoftDelete(ctx context.Context, localID string) (models.Record, error) {
	unlock := r.locks.lock(localID)
	defer unlock()

	var (
		stored    models.Record
		tombstone bool
	)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		cur, state, err := r.getTx(ctx, tx, selectRecordByLocalID, localID)
		if err != nil {
			return err
		}
		stored = cur
		if state.Deleted {
			tombstone = true
			return nil
		}

		stored.Version = cur.Version + 1
		stored.UpdatedAt = r.tick(cur.UpdatedAt)
		if err = r.updateTx(ctx, tx, stored); err != nil {
			return err
		}
		return r.tracker.markDeletedTx(ctx, tx, localID)
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.SoftDelete").
			Str("local_id", localID).
			Msg("failed to delete record")
		return models.Record{}, err
	}

	if !tombstone {
		r.publish(stored, models.ChangeDeleted)
	}
	return stored, nil
}

func (r *recordRepository) Purge(ctx context.Context, localID string) error {
	unlock := r.locks.lock(localID)
	defer unlock()

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, state, err := r.getTx(ctx, tx, selectRecordByLocalID, localID)
		if err != nil {
			return err
		}
		if !state.Deleted || state.Dirty {
			return fmt.Errorf("%w: record %s is not a confirmed tombstone", ErrConflict, localID)
		}
		return r.deleteTx(ctx, tx, localID)
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.Purge").
			Str("local_id", localID).
			Msg("failed to purge record")
		return err
	}

	r.logger.Debug().Str("func", "recordRepository.Purge").Str("local_id", localID).Msg("record purged")
	return nil
}

// ── internals ─────────────────────────────────────────────────────────────────

func (r *recordRepository) getTx(ctx context.Context, q queryer, query, id string) (models.Record, models.SyncState, error) {
	rec, state, err := scanRecordWithState(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, models.SyncState{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Record{}, models.SyncState{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return rec, state, nil
}

func (r *recordRepository) insertTx(ctx context.Context, tx *sql.Tx, rec models.Record) error {
	payload, err := encodePayload(rec.Payload)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, insertRecord,
		rec.LocalID, nullString(rec.ServerID), rec.Type, payload, rec.Version, toUnixNano(rec.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already exists: %w", ErrConflict, rec.LocalID, err)
		}
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *recordRepository) updateTx(ctx context.Context, tx *sql.Tx, rec models.Record) error {
	payload, err := encodePayload(rec.Payload)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, updateRecord,
		rec.Type, payload, rec.Version, toUnixNano(rec.UpdatedAt), rec.LocalID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *recordRepository) deleteTx(ctx context.Context, tx *sql.Tx, localID string) error {
	if _, err := tx.ExecContext(ctx, deleteSyncState, localID); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if _, err := tx.ExecContext(ctx, deleteRecord, localID); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

// tick returns the current time, strictly after prev.
func (r *recordRepository) tick(prev time.Time) time.Time {
	now := r.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (r *recordRepository) publish(rec models.Record, kind models.ChangeKind) {
	r.changes.Publish(models.ChangeEvent{
		LocalID: rec.LocalID,
		Kind:    kind,
		Version: rec.Version,
		At:      r.now().UTC(),
	})
}
