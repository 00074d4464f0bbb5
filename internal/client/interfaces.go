// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run starts the background loops and blocks until ctx is done, then
	// tears the application down.
	Run(ctx context.Context) error
}
