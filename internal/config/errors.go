package config

import "errors"

// Validation errors returned by [ClientConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates invalid adapter settings
	// (for example, missing HTTP address).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidConnectivityConfigs indicates invalid connectivity monitor
	// settings (for example, a negative grace window).
	ErrInvalidConnectivityConfigs = errors.New("invalid connectivity configuration")
	// ErrInvalidSyncConfigs indicates invalid scheduler settings
	// (for example, a backoff base larger than the cap).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
