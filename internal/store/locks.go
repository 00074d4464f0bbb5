package store

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// stripedLocks serialises mutations of the same local id without a global
// lock. Distinct ids may share a stripe.
type stripedLocks struct {
	stripes []sync.Mutex
}

func newStripedLocks(n int) *stripedLocks {
	if n <= 0 {
		n = defaultLockStripes
	}
	return &stripedLocks{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLocks) stripe(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(l.stripes)))
}

// lock acquires the stripe of key and returns its release function.
func (l *stripedLocks) lock(key string) func() {
	m := &l.stripes[l.stripe(key)]
	m.Lock()
	return m.Unlock
}
