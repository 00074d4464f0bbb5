package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/models"
)

// syncStateRepository is the SQLite-backed [SyncStateTracker]. It is the
// only writer of the dirty, deleted and last-synced columns.
type syncStateRepository struct {
	*DB
	locks  *stripedLocks
	now    func() time.Time
	logger *logger.Logger
}

func (s *syncStateRepository) State(ctx context.Context, localID string) (models.SyncState, error) {
	return s.stateTx(ctx, s.DB, localID)
}

func (s *syncStateRepository) MarkDirty(ctx context.Context, localID string) error {
	unlock := s.locks.lock(localID)
	defer unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, _, err := s.recordTx(ctx, tx, localID); err != nil {
			return err
		}
		return s.markDirtyTx(ctx, tx, localID)
	})
}

func (s *syncStateRepository) ClearDirty(ctx context.Context, localID string, atVersion int64) (bool, error) {
	unlock := s.locks.lock(localID)
	defer unlock()

	var cleared bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rec, _, err := s.recordTx(ctx, tx, localID)
		if err != nil {
			return err
		}
		if rec.Version > atVersion {
			// mutated while the pass was in flight
			return nil
		}
		cleared = true
		return s.markSyncedTx(ctx, tx, localID, atVersion)
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "syncStateRepository.ClearDirty").
			Str("local_id", localID).
			Int64("at_version", atVersion).
			Msg("failed to clear dirty flag")
		return false, err
	}
	return cleared, nil
}

func (s *syncStateRepository) AssignServerID(ctx context.Context, localID, serverID string) error {
	if serverID == "" {
		return fmt.Errorf("%w: empty server id", ErrValidation)
	}

	unlock := s.locks.lock(localID)
	defer unlock()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rec, _, err := s.recordTx(ctx, tx, localID)
		if err != nil {
			return err
		}
		switch rec.ServerID {
		case serverID:
			return nil
		case "":
		default:
			return fmt.Errorf("%w: %s already has server id %s", ErrConflict, localID, rec.ServerID)
		}

		if _, err = tx.ExecContext(ctx, updateRecordServerID, serverID, localID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: server id %s belongs to another record", ErrConflict, serverID)
			}
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "syncStateRepository.AssignServerID").
			Str("local_id", localID).
			Str("server_id", serverID).
			Msg("failed to assign server id")
	}
	return err
}

func (s *syncStateRepository) ListDirty(ctx context.Context) ([]models.DirtyEntry, error) {
	query, args, err := buildListDirtyQuery()
	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "syncStateRepository.ListDirty").Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	dirty := make([]models.DirtyEntry, 0, 16)
	for rows.Next() {
		var (
			entry   models.DirtyEntry
			updated int64
		)
		if err = rows.Scan(&entry.LocalID, &updated); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		entry.UpdatedAt = fromUnixNano(updated)
		dirty = append(dirty, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return dirty, nil
}

func (s *syncStateRepository) RecordFailure(ctx context.Context, localID string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	unlock := s.locks.lock(localID)
	defer unlock()

	res, err := s.ExecContext(ctx, recordFailure, msg, localID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, localID)
	}
	return nil
}

func (s *syncStateRepository) SetBase(ctx context.Context, localID string, payload models.Payload, remoteUpdatedAt time.Time) error {
	unlock := s.locks.lock(localID)
	defer unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, _, err := s.recordTx(ctx, tx, localID); err != nil {
			return err
		}
		return s.setBaseTx(ctx, tx, localID, payload, remoteUpdatedAt)
	})
}

// ── transaction helpers used by the record store ─────────────────────────────

func (s *syncStateRepository) stateTx(ctx context.Context, q queryer, localID string) (models.SyncState, error) {
	_, state, err := s.recordTx(ctx, q, localID)
	return state, err
}

func (s *syncStateRepository) recordTx(ctx context.Context, q queryer, localID string) (models.Record, models.SyncState, error) {
	rec, state, err := scanRecordWithState(q.QueryRowContext(ctx, selectRecordByLocalID, localID))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, state, fmt.Errorf("%w: %s", ErrNotFound, localID)
	}
	if err != nil {
		return rec, state, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return rec, state, nil
}

func (s *syncStateRepository) insertDirtyTx(ctx context.Context, tx *sql.Tx, localID string) error {
	_, err := tx.ExecContext(ctx, insertSyncState, localID, true, nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *syncStateRepository) insertSyncedTx(ctx context.Context, tx *sql.Tx, localID string, version int64, base models.Payload, remoteUpdatedAt time.Time) error {
	encoded, err := encodeNullPayload(base)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, insertSyncState,
		localID, false, toUnixNano(s.now()), version, toUnixNano(remoteUpdatedAt), encoded)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *syncStateRepository) markDirtyTx(ctx context.Context, tx *sql.Tx, localID string) error {
	return s.exec(ctx, tx, markDirty, localID)
}

func (s *syncStateRepository) markDeletedTx(ctx context.Context, tx *sql.Tx, localID string) error {
	return s.exec(ctx, tx, markDeleted, localID)
}

func (s *syncStateRepository) markSyncedTx(ctx context.Context, tx *sql.Tx, localID string, version int64) error {
	return s.exec(ctx, tx, markSynced, version, toUnixNano(s.now()), localID)
}

func (s *syncStateRepository) setBaseTx(ctx context.Context, tx *sql.Tx, localID string, payload models.Payload, remoteUpdatedAt time.Time) error {
	encoded, err := encodeNullPayload(payload)
	if err != nil {
		return err
	}
	return s.exec(ctx, tx, setBase, encoded, toUnixNano(remoteUpdatedAt), localID)
}

func (s *syncStateRepository) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
