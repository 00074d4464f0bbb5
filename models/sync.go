package models

import "time"

// SyncState is the per-record synchronization bookkeeping.
type SyncState struct {
	LocalID string `json:"local_id"`

	// Dirty is true while the record carries local changes that the server
	// has not acknowledged.
	Dirty bool `json:"dirty"`

	// Deleted marks a soft-delete tombstone. The record stays in the store
	// until the deletion is confirmed by the server.
	Deleted bool `json:"deleted"`

	// LastSyncedAt is the time of the last successful reconciliation.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	// LastSyncedVersion is the record version last confirmed by the server.
	LastSyncedVersion *int64 `json:"last_synced_version,omitempty"`

	// RemoteUpdatedAt is the authoritative server timestamp of the last
	// remote state applied to or acknowledged for this record.
	RemoteUpdatedAt *time.Time `json:"remote_updated_at,omitempty"`

	// Base is the payload last known to be stored on the server. It is the
	// common ancestor used when merging a conflict field by field.
	Base Payload `json:"base,omitempty"`

	// LastError is the error recorded by the last failed push, if any.
	LastError string `json:"last_error,omitempty"`

	// FailedAttempts counts consecutive failed pushes.
	FailedAttempts int `json:"failed_attempts"`
}

// PendingSync reports whether the record is waiting to be synchronized and
// has already failed at least once. The UI shows such records as
// "pending sync" instead of an error.
func (s SyncState) PendingSync() bool {
	return s.Dirty && s.FailedAttempts > 0
}

// DirtyEntry is a single element of the dirty list.
type DirtyEntry struct {
	LocalID   string    `json:"local_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeKind classifies a committed store mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is emitted by the record store for every committed mutation,
// including mutations applied by the sync engine while pulling.
type ChangeEvent struct {
	LocalID string     `json:"local_id"`
	Kind    ChangeKind `json:"change_kind"`
	Version int64      `json:"version"`
	At      time.Time  `json:"at"`
}
