package config

import (
	"fmt"
	"time"
)

// Defaults applied by [GetClientConfig] to zero-valued settings.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultGraceWindow    = 2 * time.Second
	DefaultProbeInterval  = 5 * time.Second
	DefaultSyncInterval   = 60 * time.Second
	DefaultBackoffBase    = 5 * time.Second
	DefaultBackoffMax     = 5 * time.Minute
	DefaultPageLimit      = 200
	DefaultMaxRetries     = 3
)

// ClientApp holds process-level settings.
type ClientApp struct {
	LogPath string
	Version string
}

// ClientAdapter holds network settings used by the remote adapter.
type ClientAdapter struct {
	// HTTPAddress is the base URL of the remote sync API.
	HTTPAddress string
	// RequestTimeout bounds every outbound request.
	RequestTimeout time.Duration
	// Token is the bearer token attached to every request.
	Token string
}

// ClientDB contains local database connection settings.
type ClientDB struct {
	// DSN is the SQLite connection string.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB ClientDB
}

// ClientConnectivity contains connectivity monitor settings.
type ClientConnectivity struct {
	GraceWindow   time.Duration
	ProbeInterval time.Duration
}

// ClientSync contains scheduler and engine settings.
type ClientSync struct {
	Interval    time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
	PageLimit   int
	MaxRetries  uint64
}

// ClientConfig is the runtime configuration assembled from
// [StructuredConfig] with defaults applied.
type ClientConfig struct {
	App          ClientApp
	Adapter      ClientAdapter
	Storage      ClientStorage
	Connectivity ClientConnectivity
	Sync         ClientSync
}

// GetClientConfig builds and validates the runtime configuration.
//
// It loads the base config via [GetStructuredConfig], maps it to
// [ClientConfig], fills zero values with the package defaults and validates
// the result.
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// NewClientConfig maps cfg to a [ClientConfig] and applies defaults. It does
// not validate.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			LogPath: cfg.App.LogPath,
			Version: cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			Token:          cfg.Adapter.Token,
		},
		Storage: ClientStorage{
			DB: ClientDB{DSN: cfg.Storage.DB.DSN},
		},
		Connectivity: ClientConnectivity{
			GraceWindow:   cfg.Connectivity.GraceWindow,
			ProbeInterval: cfg.Connectivity.ProbeInterval,
		},
		Sync: ClientSync{
			Interval:    cfg.Sync.Interval,
			BackoffBase: cfg.Sync.BackoffBase,
			BackoffMax:  cfg.Sync.BackoffMax,
			PageLimit:   cfg.Sync.PageLimit,
			MaxRetries:  cfg.Sync.MaxRetries,
		},
	}
	clientCfg.applyDefaults()

	return clientCfg
}

func (cfg *ClientConfig) applyDefaults() {
	setDefault(&cfg.Adapter.RequestTimeout, DefaultRequestTimeout)
	setDefault(&cfg.Connectivity.GraceWindow, DefaultGraceWindow)
	setDefault(&cfg.Connectivity.ProbeInterval, DefaultProbeInterval)
	setDefault(&cfg.Sync.Interval, DefaultSyncInterval)
	setDefault(&cfg.Sync.BackoffBase, DefaultBackoffBase)
	setDefault(&cfg.Sync.BackoffMax, DefaultBackoffMax)
	setDefault(&cfg.Sync.PageLimit, DefaultPageLimit)
	setDefault(&cfg.Sync.MaxRetries, DefaultMaxRetries)
}

func setDefault[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}
