package config

import (
	"flag"
	"fmt"
	"time"
)

// ParseFlags parses the configuration flags from args (usually
// os.Args[1:]). A dedicated flag set is used so that repeated calls do not
// clash on the global flag.CommandLine.
//
// Flags:
//
//	-a remote sync API base URL
//	-d local database DSN
//	-c/-config json file path with configs
//	-token bearer token for the remote
//	-log log file path
//	-request-timeout request timeout (e.g., "30s")
//	-grace-window connectivity grace window (e.g., "2s")
//	-probe-interval reachability probe interval while offline
//	-sync-interval periodic sync interval (e.g., "60s")
//	-backoff-base first backoff ceiling after a failed pass
//	-backoff-max backoff cap
//	-page-limit pull page size
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("syncd", flag.ContinueOnError)

	var (
		address        string
		databaseDSN    string
		jsonConfigPath string
		token          string
		logPath        string
		requestTimeout time.Duration
		graceWindow    time.Duration
		probeInterval  time.Duration
		syncInterval   time.Duration
		backoffBase    time.Duration
		backoffMax     time.Duration
		pageLimit      int
	)

	fs.StringVar(&address, "a", "", "Remote sync API base URL")
	fs.StringVar(&databaseDSN, "d", "", "Local database DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&token, "token", "", "Bearer token for the remote")
	fs.StringVar(&logPath, "log", "", "Log file path")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s)")
	fs.DurationVar(&graceWindow, "grace-window", 0, "Connectivity grace window (e.g., 2s)")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Reachability probe interval while offline")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync interval (e.g., 60s)")
	fs.DurationVar(&backoffBase, "backoff-base", 0, "First backoff ceiling after a failed pass")
	fs.DurationVar(&backoffMax, "backoff-max", 0, "Backoff cap")
	fs.IntVar(&pageLimit, "page-limit", 0, "Pull page size")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			LogPath: logPath,
		},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Adapter: Adapter{
			HTTPAddress:    address,
			RequestTimeout: requestTimeout,
			Token:          token,
		},
		Connectivity: Connectivity{
			GraceWindow:   graceWindow,
			ProbeInterval: probeInterval,
		},
		Sync: Sync{
			Interval:    syncInterval,
			BackoffBase: backoffBase,
			BackoffMax:  backoffMax,
			PageLimit:   pageLimit,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}
