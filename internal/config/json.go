package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] for JSON files. Durations
// are accepted either as strings ("30s") or as integer nanoseconds.
type StructuredJSONConfig struct {
	App struct {
		LogPath string `json:"log_path"`
		Version string `json:"version"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		Token          string   `json:"token"`
	} `json:"adapter,omitempty"`

	Connectivity struct {
		GraceWindow   Duration `json:"grace_window"`
		ProbeInterval Duration `json:"probe_interval"`
	} `json:"connectivity,omitempty"`

	Sync struct {
		Interval    Duration `json:"interval"`
		BackoffBase Duration `json:"backoff_base"`
		BackoffMax  Duration `json:"backoff_max"`
		PageLimit   int      `json:"page_limit"`
		MaxRetries  uint64   `json:"max_retries"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			LogPath: jsonCfg.App.LogPath,
			Version: jsonCfg.App.Version,
		},
		Storage: Storage{
			DB: DB{DSN: jsonCfg.Storage.DB.DSN},
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			Token:          jsonCfg.Adapter.Token,
		},
		Connectivity: Connectivity{
			GraceWindow:   time.Duration(jsonCfg.Connectivity.GraceWindow),
			ProbeInterval: time.Duration(jsonCfg.Connectivity.ProbeInterval),
		},
		Sync: Sync{
			Interval:    time.Duration(jsonCfg.Sync.Interval),
			BackoffBase: time.Duration(jsonCfg.Sync.BackoffBase),
			BackoffMax:  time.Duration(jsonCfg.Sync.BackoffMax),
			PageLimit:   jsonCfg.Sync.PageLimit,
			MaxRetries:  jsonCfg.Sync.MaxRetries,
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
