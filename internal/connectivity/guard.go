package connectivity

import "github.com/MKhiriev/go-sync-core/models"

// Requirement states what an operation needs from the network.
type Requirement int

const (
	// RequiresNothing marks an operation that works offline.
	RequiresNothing Requirement = iota
	// RequiresOnline marks an operation that must reach the remote.
	RequiresOnline
)

// Decision is the answer of [Guard.Check].
type Decision int

const (
	Proceed Decision = iota
	Defer
)

func (d Decision) String() string {
	if d == Defer {
		return "defer"
	}
	return "proceed"
}

// StatusReader is the part of [Monitor] the guard depends on.
type StatusReader interface {
	CurrentStatus() models.ConnectivityStatus
}

// Guard decides whether an operation may run now or has to wait for
// connectivity. Redirecting the user is up to the caller.
type Guard struct {
	status StatusReader
}

func NewGuard(status StatusReader) *Guard {
	return &Guard{status: status}
}

// Check answers Defer for an operation that needs the network unless the
// monitor reports Online. Unknown is treated as not online.
func (g *Guard) Check(req Requirement) Decision {
	if req == RequiresOnline && g.status.CurrentStatus() != models.StatusOnline {
		return Defer
	}
	return Proceed
}
