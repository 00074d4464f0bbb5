package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-sync-core/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const (
	recordWithStateColumns = `r.local_id, r.server_id, r.type, r.payload, r.version, r.updated_at,
		s.dirty, s.deleted, s.last_synced_at, s.last_synced_version, s.remote_updated_at,
		s.base_payload, s.last_error, s.failed_attempts`

	selectRecordByLocalID = `SELECT ` + recordWithStateColumns + `
		FROM records r JOIN sync_state s ON s.local_id = r.local_id
		WHERE r.local_id = ?;`

	selectRecordByServerID = `SELECT ` + recordWithStateColumns + `
		FROM records r JOIN sync_state s ON s.local_id = r.local_id
		WHERE r.server_id = ?;`

	selectLocalIDByServerID = `SELECT local_id FROM records WHERE server_id = ?;`

	insertRecord = `INSERT INTO records (local_id, server_id, type, payload, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?);`

	updateRecord = `UPDATE records
		SET type = ?, payload = ?, version = ?, updated_at = ?
		WHERE local_id = ?;`

	updateRecordServerID = `UPDATE records SET server_id = ? WHERE local_id = ?;`

	deleteRecord    = `DELETE FROM records WHERE local_id = ?;`
	deleteSyncState = `DELETE FROM sync_state WHERE local_id = ?;`

	insertSyncState = `INSERT INTO sync_state (
			local_id, dirty, deleted, last_synced_at, last_synced_version, remote_updated_at, base_payload
		) VALUES (?, ?, 0, ?, ?, ?, ?);`

	markDirty   = `UPDATE sync_state SET dirty = 1 WHERE local_id = ?;`
	markDeleted = `UPDATE sync_state SET dirty = 1, deleted = 1 WHERE local_id = ?;`

	markSynced = `UPDATE sync_state
		SET dirty = 0, last_synced_version = ?, last_synced_at = ?, last_error = '', failed_attempts = 0
		WHERE local_id = ?;`

	setBase = `UPDATE sync_state SET base_payload = ?, remote_updated_at = ? WHERE local_id = ?;`

	recordFailure = `UPDATE sync_state
		SET last_error = ?, failed_attempts = failed_attempts + 1
		WHERE local_id = ?;`

	selectMeta = `SELECT value FROM sync_meta WHERE key = ?;`
	upsertMeta = `INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`

	insertConflict = `INSERT INTO conflicts (
			local_id, server_id, winner, reason,
			local_version, local_updated_at, local_deleted,
			remote_updated_at, remote_deleted,
			local_payload, remote_payload, losing_payload, merged_payload, merged_fields,
			resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
)

const (
	metaKeyCursor     = "pull_cursor"
	metaKeyLastReport = "last_report"
)

// buildListRecordsQuery selects records with their state. Only live records
// are returned unless withTombstones is set.
func buildListRecordsQuery(withTombstones bool) (string, []any, error) {
	b := psql.Select(recordWithStateColumns).
		From("records r").
		Join("sync_state s ON s.local_id = r.local_id").
		OrderBy("r.updated_at ASC", "r.local_id ASC")
	if !withTombstones {
		b = b.Where(sq.Eq{"s.deleted": 0})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildListDirtyQuery() (string, []any, error) {
	query, args, err := psql.Select("r.local_id", "r.updated_at").
		From("records r").
		Join("sync_state s ON s.local_id = r.local_id").
		Where(sq.Eq{"s.dirty": 1}).
		OrderBy("r.updated_at ASC", "r.local_id ASC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

func buildListConflictsQuery(localID string, limit uint64) (string, []any, error) {
	b := psql.Select(
		"id", "local_id", "server_id", "winner", "reason",
		"local_version", "local_updated_at", "local_deleted",
		"remote_updated_at", "remote_deleted",
		"local_payload", "remote_payload", "losing_payload", "merged_payload", "merged_fields",
		"resolved_at",
	).From("conflicts").OrderBy("id DESC")
	if localID != "" {
		b = b.Where(sq.Eq{"local_id": localID})
	}
	if limit > 0 {
		b = b.Limit(limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

// ── row mapping ───────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecordWithState(row rowScanner) (models.Record, models.SyncState, error) {
	var (
		rec      models.Record
		st       models.SyncState
		serverID sql.NullString
		payload  string
		updated  int64
		synced   sql.NullInt64
		syncVer  sql.NullInt64
		remoteAt sql.NullInt64
		base     sql.NullString
	)

	err := row.Scan(
		&rec.LocalID, &serverID, &rec.Type, &payload, &rec.Version, &updated,
		&st.Dirty, &st.Deleted, &synced, &syncVer, &remoteAt,
		&base, &st.LastError, &st.FailedAttempts,
	)
	if err != nil {
		return models.Record{}, models.SyncState{}, err
	}

	rec.ServerID = serverID.String
	rec.UpdatedAt = fromUnixNano(updated)
	if rec.Payload, err = decodePayload(payload); err != nil {
		return models.Record{}, models.SyncState{}, err
	}

	st.LocalID = rec.LocalID
	st.LastSyncedAt = nullTime(synced)
	if syncVer.Valid {
		v := syncVer.Int64
		st.LastSyncedVersion = &v
	}
	st.RemoteUpdatedAt = nullTime(remoteAt)
	if base.Valid {
		if st.Base, err = decodePayload(base.String); err != nil {
			return models.Record{}, models.SyncState{}, err
		}
	}

	return rec, st, nil
}

func scanConflict(row rowScanner) (models.ConflictResolution, error) {
	var (
		c                                 models.ConflictResolution
		localAt, remoteAt, resolvedAt     int64
		localP, remoteP, losingP, mergedP sql.NullString
		mergedFields                      sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.LocalID, &c.ServerID, &c.Winner, &c.Reason,
		&c.LocalVersion, &localAt, &c.LocalDeleted,
		&remoteAt, &c.RemoteDeleted,
		&localP, &remoteP, &losingP, &mergedP, &mergedFields,
		&resolvedAt,
	)
	if err != nil {
		return c, err
	}

	c.LocalUpdatedAt = fromUnixNano(localAt)
	c.RemoteUpdatedAt = fromUnixNano(remoteAt)
	c.ResolvedAt = fromUnixNano(resolvedAt)

	for _, p := range []struct {
		src sql.NullString
		dst *models.Payload
	}{
		{localP, &c.LocalPayload},
		{remoteP, &c.RemotePayload},
		{losingP, &c.LosingPayload},
		{mergedP, &c.MergedPayload},
	} {
		if !p.src.Valid {
			continue
		}
		if *p.dst, err = decodePayload(p.src.String); err != nil {
			return c, err
		}
	}
	if mergedFields.Valid && mergedFields.String != "" {
		if err = json.Unmarshal([]byte(mergedFields.String), &c.MergedFields); err != nil {
			return c, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
		}
	}

	return c, nil
}

func encodePayload(p models.Payload) (string, error) {
	if p == nil {
		p = models.Payload{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingPayload, err)
	}
	return string(data), nil
}

// encodeNullPayload stores a nil payload as NULL.
func encodeNullPayload(p models.Payload) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	s, err := encodePayload(p)
	return sql.NullString{String: s, Valid: err == nil}, err
}

func decodePayload(s string) (models.Payload, error) {
	var p models.Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
	}
	if p == nil {
		p = models.Payload{}
	}
	return p, nil
}

func toUnixNano(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnixNano(n.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
