// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container. It is
// populated by merging values from environment variables, command-line
// flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds process-level settings.
	App App `envPrefix:"APP_"`

	// Storage holds the local database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds the remote server endpoint settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Connectivity holds the connectivity monitor settings.
	Connectivity Connectivity `envPrefix:"CONNECTIVITY_"`

	// Sync holds the scheduler and engine settings.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds process-level configuration values.
type App struct {
	// LogPath is the file the daemon appends its log to. Empty means the
	// file "logs" next to the executable.
	// Env: APP_LOG_PATH
	LogPath string `env:"LOG_PATH"`

	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the configuration for the local storage backend.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite database file path or "file:" URI.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds the remote server endpoint settings.
type Adapter struct {
	// HTTPAddress is the base URL of the remote sync API
	// (e.g. "https://api.example.org/v1"). A bare "host:port" is treated as
	// plain http.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Token is the opaque bearer token attached to every request.
	// Env: ADAPTER_TOKEN
	Token string `env:"TOKEN"`
}

// Connectivity holds the connectivity monitor settings.
type Connectivity struct {
	// GraceWindow is how long the reachability signal must stay negative
	// before Offline is reported.
	// Env: CONNECTIVITY_GRACE_WINDOW
	GraceWindow time.Duration `env:"GRACE_WINDOW"`

	// ProbeInterval is how often the prober dials the remote while the
	// monitor is not Online.
	// Env: CONNECTIVITY_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// Sync holds the scheduler and engine settings.
type Sync struct {
	// Interval is the periodic pass interval while online.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// BackoffBase is the first backoff ceiling after a failed pass.
	// Env: SYNC_BACKOFF_BASE
	BackoffBase time.Duration `env:"BACKOFF_BASE"`

	// BackoffMax caps the backoff ceiling.
	// Env: SYNC_BACKOFF_MAX
	BackoffMax time.Duration `env:"BACKOFF_MAX"`

	// PageLimit is the page size requested when pulling changes.
	// Env: SYNC_PAGE_LIMIT
	PageLimit int `env:"PAGE_LIMIT"`

	// MaxRetries is the number of in-pass retries of a transient failure.
	// Env: SYNC_MAX_RETRIES
	MaxRetries uint64 `env:"MAX_RETRIES"`
}

// GetStructuredConfig loads and merges the configuration from all available
// sources in the following priority order (last source wins for non-zero
// fields):
//  1. Environment variables
//  2. Command-line flags (args)
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}
