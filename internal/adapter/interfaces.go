// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport layer between the sync engine and
// the remote record service.
//
// The primary abstraction is [RemoteAdapter], which decouples the engine from
// the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPRemoteAdapter]) built on resty.
//
// Every failed call is returned as a [*NetworkError] carrying the HTTP status
// (zero for transport failures) and a Transient flag. The sentinel values in
// errors.go are mapped from HTTP status codes by mapHTTPError so that callers
// can use [errors.Is] for transport-agnostic handling (e.g. [ErrNotFound] for
// 404, [ErrConflict] for 409).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-sync-core/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_adapter_mock.go -package=mock

// RemoteAdapter defines the remote contract consumed by the sync engine.
type RemoteAdapter interface {
	// PullChanges fetches one page of changes after cursor. An empty cursor
	// starts from the beginning; limit <= 0 lets the server choose.
	PullChanges(ctx context.Context, cursor string, limit int) (models.ChangesPage, error)

	// Create pushes a record that has never been acknowledged by the server.
	// A 409 is returned as a definitive [*NetworkError] wrapping [ErrConflict].
	// Transient failures are retried with the same request, so a create whose
	// reply was lost is sent again; the server is expected to deduplicate on
	// req.LocalID.
	Create(ctx context.Context, req models.CreateRecordRequest) (models.CreateRecordResponse, error)

	// Update pushes a new payload guarded by the version token in req.
	// When the server holds a newer state it returns a [*StaleTokenError]
	// with that state. A 404 means the record is gone on the server.
	Update(ctx context.Context, serverID string, req models.UpdateRecordRequest) (models.UpdateRecordResponse, error)

	// Delete removes the record on the server. A 404 is treated as success.
	Delete(ctx context.Context, serverID string) error

	// Ping checks that the server answers at all. Any HTTP response counts
	// as reachable.
	Ping(ctx context.Context) error
}

// ReachabilityObserver receives a signal for every completed round trip:
// true when the server answered, false on a transport failure.
type ReachabilityObserver interface {
	Observe(reachable bool)
}
