package models

import "time"

// ConflictWinner names the side whose state prevailed in a conflict.
type ConflictWinner string

const (
	WinnerLocal  ConflictWinner = "local"
	WinnerRemote ConflictWinner = "remote"
)

// ConflictReason names the rule that decided a conflict.
type ConflictReason string

const (
	ReasonLocalTombstone  ConflictReason = "local_tombstone"
	ReasonRemoteTombstone ConflictReason = "remote_tombstone"
	ReasonBothTombstones  ConflictReason = "both_tombstones"
	ReasonLastWriterWins  ConflictReason = "last_writer_wins"
)

// ConflictResolution is the audit entry written for every resolved conflict.
// Both sides are kept so that the losing change is never silently lost.
type ConflictResolution struct {
	ID              int64          `json:"id"`
	LocalID         string         `json:"local_id"`
	ServerID        string         `json:"server_id"`
	Winner          ConflictWinner `json:"winner"`
	Reason          ConflictReason `json:"reason"`
	LocalVersion    int64          `json:"local_version"`
	LocalUpdatedAt  time.Time      `json:"local_updated_at"`
	LocalDeleted    bool           `json:"local_deleted"`
	RemoteUpdatedAt time.Time      `json:"remote_updated_at"`
	RemoteDeleted   bool           `json:"remote_deleted"`
	LocalPayload    Payload        `json:"local_payload,omitempty"`
	RemotePayload   Payload        `json:"remote_payload,omitempty"`
	LosingPayload   Payload        `json:"losing_payload,omitempty"`
	MergedPayload   Payload        `json:"merged_payload,omitempty"`
	MergedFields    []string       `json:"merged_fields,omitempty"`
	ResolvedAt      time.Time      `json:"resolved_at"`
}
