package models

import "time"

// ConnectivityStatus is the debounced reachability of the remote service.
type ConnectivityStatus string

const (
	StatusUnknown ConnectivityStatus = "unknown"
	StatusOnline  ConnectivityStatus = "online"
	StatusOffline ConnectivityStatus = "offline"
)

// StatusEvent is one reported connectivity transition. Events reach
// subscribers with strictly increasing At.
type StatusEvent struct {
	Status   ConnectivityStatus `json:"status"`
	Previous ConnectivityStatus `json:"previous"`
	At       time.Time          `json:"at"`
}
