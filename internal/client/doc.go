// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the sync core into a single embeddable
// application.
//
// [App] wires the local SQLite store, the remote adapter, the connectivity
// monitor with its prober, the sync engine and the scheduler, and exposes
// the consumer contract: record CRUD, the change stream, connectivity
// status, the navigation guard and sync control.
package client
