// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// RemoteChange is one element of a pulled changes page.
type RemoteChange struct {
	// ServerID identifies the record on the server.
	ServerID string `json:"serverId"`

	// Payload is the authoritative payload. Empty for deletions.
	Payload Payload `json:"payload,omitempty"`

	// Type is the record type. Optional; when empty the local record type
	// is kept.
	Type string `json:"type,omitempty"`

	// UpdatedAt is the authoritative server timestamp of the change.
	UpdatedAt time.Time `json:"updatedAt"`

	// Deleted is true when the record was deleted on the server.
	Deleted bool `json:"deleted"`

	// Version is the optimistic-concurrency token the server currently holds
	// for the record. Zero when the server does not report it.
	Version int64 `json:"version,omitempty"`
}

// ChangesPage is the response of GET /changes.
type ChangesPage struct {
	Changes []RemoteChange `json:"changes"`

	// NextCursor is the opaque position to resume from. An empty value or a
	// value equal to the request cursor means there is nothing more to pull.
	NextCursor string `json:"nextCursor"`

	// HasMore is an optional hint. When absent the client keeps pulling
	// while the cursor advances and pages are not empty; false stops right
	// after this page.
	HasMore *bool `json:"hasMore,omitempty"`
}

// CreateRecordRequest is the body of POST /records.
type CreateRecordRequest struct {
	LocalID string  `json:"localId"`
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
	Version int64   `json:"version"`
}

// CreateRecordResponse is the successful response of POST /records.
type CreateRecordResponse struct {
	ServerID  string    `json:"serverId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateRecordRequest is the body of PUT /records/{serverId}. Version is the
// optimistic-concurrency token.
type UpdateRecordRequest struct {
	Type    string  `json:"type,omitempty"`
	Payload Payload `json:"payload"`
	Version int64   `json:"version"`
}

// UpdateRecordResponse is the successful response of PUT /records/{serverId}.
type UpdateRecordResponse struct {
	UpdatedAt time.Time `json:"updatedAt"`
}

// StaleRecordResponse is the 409 body of PUT /records/{serverId}: the state
// the server currently holds.
type StaleRecordResponse struct {
	CurrentPayload   Payload   `json:"currentPayload"`
	CurrentUpdatedAt time.Time `json:"currentUpdatedAt"`
	CurrentVersion   int64     `json:"currentVersion,omitempty"`
	Deleted          bool      `json:"deleted,omitempty"`
}
