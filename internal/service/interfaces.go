// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service holds the synchronization logic of the sync core: the
// conflict resolver, the sync engine running a single pass and the scheduler
// deciding when passes run.
package service

import (
	"context"

	"github.com/MKhiriev/go-sync-core/models"
)

// SyncEngine runs one synchronization pass: pull remote changes, push local
// ones and report the aggregate outcome. Network failures never escape a
// pass; they are folded into the returned report.
type SyncEngine interface {
	// RunPass executes a pass to completion or until ctx is cancelled, in
	// which case the outcome is [models.PassAborted]. The report is also
	// persisted as the last pass report.
	RunPass(ctx context.Context, trigger models.SyncTrigger) models.PassReport
}

// SyncScheduler decides when passes run and keeps at most one in flight.
type SyncScheduler interface {
	// Run drives the scheduler until ctx is done. A running pass is
	// cancelled on return.
	Run(ctx context.Context)

	// RequestSync asks for a pass now. It bypasses the failure backoff and
	// is coalesced with a pass already running. While offline the request
	// is kept until connectivity returns.
	RequestSync()

	// LastOutcome returns the report of the last finished pass, if any.
	LastOutcome() (models.PassReport, bool)

	// Reports streams every finished pass report.
	Reports() (<-chan models.PassReport, func())
}

// StatusSource is the part of the connectivity monitor the scheduler uses.
type StatusSource interface {
	CurrentStatus() models.ConnectivityStatus
	Subscribe() (<-chan models.StatusEvent, func())
}
