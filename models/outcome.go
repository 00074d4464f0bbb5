package models

import "time"

// PassOutcome is the aggregate result of one synchronization pass.
type PassOutcome string

const (
	// PassSuccess means every dirty record was processed and the pull
	// cursor advanced.
	PassSuccess PassOutcome = "success"

	// PassPartialFailure means some records were left dirty with recorded
	// errors. Successfully pulled data is committed and the cursor advanced.
	PassPartialFailure PassOutcome = "partial_failure"

	// PassAborted means connectivity was lost mid-pass. The cursor is not
	// advanced past the last fully-applied page.
	PassAborted PassOutcome = "aborted"
)

// SyncTrigger names what caused a pass to run.
type SyncTrigger string

const (
	TriggerConnectivity SyncTrigger = "connectivity"
	TriggerPeriodic     SyncTrigger = "periodic"
	TriggerExplicit     SyncTrigger = "explicit"
	TriggerRetry        SyncTrigger = "retry"
	TriggerFollowUp     SyncTrigger = "follow_up"
)

// RecordFailure describes a record left dirty by a pass.
type RecordFailure struct {
	LocalID string `json:"local_id"`
	Error   string `json:"error"`
}

// PassReport summarizes one pass.
type PassReport struct {
	Outcome    PassOutcome     `json:"outcome"`
	Trigger    SyncTrigger     `json:"trigger,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Cursor     string          `json:"cursor,omitempty"`
	Pulled     int             `json:"pulled"`
	Pages      int             `json:"pages"`
	Created    int             `json:"created"`
	Updated    int             `json:"updated"`
	Deleted    int             `json:"deleted"`
	Purged     int             `json:"purged"`
	Conflicts  int             `json:"conflicts"`
	Failures   []RecordFailure `json:"failures,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Pushed returns the number of records acknowledged by the server.
func (r PassReport) Pushed() int {
	return r.Created + r.Updated + r.Deleted
}
