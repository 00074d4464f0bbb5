package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-core/internal/logger"
	"github.com/MKhiriev/go-sync-core/models"
)

// syncMetaRepository is the SQLite-backed [SyncMetaStorage].
type syncMetaRepository struct {
	*DB
	logger *logger.Logger
}

func (m *syncMetaRepository) Cursor(ctx context.Context) (string, error) {
	cursor, _, err := m.get(ctx, metaKeyCursor)
	return cursor, err
}

func (m *syncMetaRepository) SetCursor(ctx context.Context, cursor string) error {
	if err := m.set(ctx, metaKeyCursor, cursor); err != nil {
		m.logger.Err(err).
			Str("func", "syncMetaRepository.SetCursor").
			Str("cursor", cursor).
			Msg("failed to persist pull cursor")
		return err
	}
	return nil
}

func (m *syncMetaRepository) SaveReport(ctx context.Context, report models.PassReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode pass report: %w", err)
	}
	return m.set(ctx, metaKeyLastReport, string(data))
}

// LastReport returns nil when no pass has been recorded yet.
func (m *syncMetaRepository) LastReport(ctx context.Context) (*models.PassReport, error) {
	raw, ok, err := m.get(ctx, metaKeyLastReport)
	if err != nil || !ok {
		return nil, err
	}

	var report models.PassReport
	if err = json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decode pass report: %w", err)
	}
	return &report, nil
}

func (m *syncMetaRepository) ListConflicts(ctx context.Context, localID string, limit uint64) ([]models.ConflictResolution, error) {
	query, args, err := buildListConflictsQuery(localID, limit)
	if err != nil {
		return nil, err
	}

	rows, err := m.QueryContext(ctx, query, args...)
	if err != nil {
		m.logger.Err(err).Str("func", "syncMetaRepository.ListConflicts").Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	conflicts := make([]models.ConflictResolution, 0, 8)
	for rows.Next() {
		c, scanErr := scanConflict(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		conflicts = append(conflicts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return conflicts, nil
}

func (m *syncMetaRepository) appendConflictTx(ctx context.Context, tx *sql.Tx, c models.ConflictResolution) (int64, error) {
	payloads := make([]sql.NullString, 0, 4)
	for _, p := range []models.Payload{c.LocalPayload, c.RemotePayload, c.LosingPayload, c.MergedPayload} {
		encoded, err := encodeNullPayload(p)
		if err != nil {
			return 0, err
		}
		payloads = append(payloads, encoded)
	}

	var mergedFields sql.NullString
	if len(c.MergedFields) > 0 {
		data, err := json.Marshal(c.MergedFields)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
		}
		mergedFields = sql.NullString{String: string(data), Valid: true}
	}

	res, err := tx.ExecContext(ctx, insertConflict,
		c.LocalID, c.ServerID, string(c.Winner), string(c.Reason),
		c.LocalVersion, toUnixNano(c.LocalUpdatedAt), c.LocalDeleted,
		toUnixNano(c.RemoteUpdatedAt), c.RemoteDeleted,
		payloads[0], payloads[1], payloads[2], payloads[3], mergedFields,
		toUnixNano(c.ResolvedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return res.LastInsertId()
}

func (m *syncMetaRepository) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := m.QueryRowContext(ctx, selectMeta, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		m.logger.Err(err).Str("func", "syncMetaRepository.get").Str("key", key).Msg("failed to read meta")
		return "", false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return value, true, nil
}

func (m *syncMetaRepository) set(ctx context.Context, key, value string) error {
	if _, err := m.ExecContext(ctx, upsertMeta, key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
