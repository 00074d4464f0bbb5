// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

// validate checks that the merged [StructuredConfig] has no values that are
// invalid regardless of defaults.
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.PageLimit < 0 {
		return fmt.Errorf("%w: negative page limit", ErrInvalidSyncConfigs)
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout < 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Connectivity.GraceWindow < 0 || cfg.Connectivity.ProbeInterval < 0 {
		return ErrInvalidConnectivityConfigs
	}

	if cfg.Sync.Interval < 0 || cfg.Sync.BackoffBase < 0 || cfg.Sync.BackoffBase > cfg.Sync.BackoffMax {
		return ErrInvalidSyncConfigs
	}

	return nil
}
