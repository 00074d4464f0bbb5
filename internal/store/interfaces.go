// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"iter"
	"time"

	"github.com/MKhiriev/go-sync-core/models"
)

// RecordStore is the durable keyed storage for typed records. Every
// committed mutation is announced on the change stream.
type RecordStore interface {
	// Put inserts rec (a new local id is generated when empty) or updates
	// the record with the same local id. The version is incremented and
	// the record is marked dirty in the same transaction.
	Put(ctx context.Context, rec models.Record) (models.Record, error)
	// Get returns the record with localID, tombstones included.
	Get(ctx context.Context, localID string) (models.Record, error)
	// GetByServerID returns the record that was assigned serverID.
	GetByServerID(ctx context.Context, serverID string) (models.Record, error)
	// Query returns a restartable sequence over a snapshot of all live
	// (not tombstoned) records taken at call time. pred may be nil.
	Query(ctx context.Context, pred func(models.Record) bool) (iter.Seq[models.Record], error)
	// SoftDelete tombstones the record and increments its version.
	SoftDelete(ctx context.Context, localID string) (models.Record, error)
	// Purge physically removes a tombstone whose deletion is confirmed.
	Purge(ctx context.Context, localID string) error
	// ApplyRemote lands a pulled (or server-reported) change. Dirty local
	// records are reconciled through policy.
	ApplyRemote(ctx context.Context, change models.RemoteChange, policy ConflictPolicy) (ApplyResult, error)
	// Subscribe returns the change stream and a cancel function.
	Subscribe() (<-chan models.ChangeEvent, func())
}

// SyncStateTracker owns the per-record sync bookkeeping.
type SyncStateTracker interface {
	State(ctx context.Context, localID string) (models.SyncState, error)
	MarkDirty(ctx context.Context, localID string) error
	// ClearDirty marks the record synced at atVersion. It reports false and
	// changes nothing when the record was mutated past atVersion.
	ClearDirty(ctx context.Context, localID string, atVersion int64) (bool, error)
	AssignServerID(ctx context.Context, localID, serverID string) error
	// ListDirty returns dirty records ordered oldest update first.
	ListDirty(ctx context.Context) ([]models.DirtyEntry, error)
	RecordFailure(ctx context.Context, localID string, cause error) error
	SetBase(ctx context.Context, localID string, payload models.Payload, remoteUpdatedAt time.Time) error
}

// SyncMetaStorage persists pass-level state: the pull cursor, the last pass
// report and the conflict audit log.
type SyncMetaStorage interface {
	Cursor(ctx context.Context) (string, error)
	SetCursor(ctx context.Context, cursor string) error
	SaveReport(ctx context.Context, report models.PassReport) error
	LastReport(ctx context.Context) (*models.PassReport, error)
	// ListConflicts returns logged resolutions newest first. Empty localID
	// lists all records; zero limit means no limit.
	ListConflicts(ctx context.Context, localID string, limit uint64) ([]models.ConflictResolution, error)
}

// ConflictPolicy decides how a remote change meets a locally modified
// record. It is called inside the store transaction and must not block.
type ConflictPolicy interface {
	Resolve(ctx context.Context, local models.Record, state models.SyncState, change models.RemoteChange) models.ConflictResolution
}

// ApplyAction tells what [RecordStore.ApplyRemote] did.
type ApplyAction string

const (
	ApplySkipped  ApplyAction = "skipped"
	ApplyCreated  ApplyAction = "created"
	ApplyUpdated  ApplyAction = "updated"
	ApplyPurged   ApplyAction = "purged"
	ApplyResolved ApplyAction = "resolved"
)

// ApplyResult is the outcome of [RecordStore.ApplyRemote].
type ApplyResult struct {
	Action ApplyAction
	// Record is the local record after the change (before removal for
	// purged records). Zero when a remote tombstone had no local copy.
	Record models.Record
	State  models.SyncState
	// Resolution is set when the change was reconciled against local edits.
	Resolution *models.ConflictResolution
}
