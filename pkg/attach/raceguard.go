// Package attach holds the pieces the connection pipeline is built
// from: the per-slot race guard, the catalog verification poller,
// and the rollback coordinator.
package attach

import (
	"sync"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

// RaceGuard admits at most one in-flight pipeline per named slot. A
// second caller gets apperrors.ErrAlreadyInFlight instead of queueing,
// so double-clicked connect buttons, overlapping reconnects, and
// concurrent test probes cannot interleave engine statements for the
// same target. Callers name the slots: one per source record, one per
// requested alias.
type RaceGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRaceGuard creates an empty guard.
func NewRaceGuard() *RaceGuard {
	return &RaceGuard{inFlight: make(map[string]struct{})}
}

// Acquire claims the named slot. The caller must Release on every
// exit path once acquired.
func (g *RaceGuard) Acquire(slot string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[slot]; busy {
		return apperrors.ErrAlreadyInFlight
	}
	g.inFlight[slot] = struct{}{}
	return nil
}

// Release frees the named slot. Releasing an unclaimed slot is a
// no-op.
func (g *RaceGuard) Release(slot string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, slot)
}

// InFlight reports whether an attempt is currently running for slot.
func (g *RaceGuard) InFlight(slot string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[slot]
	return busy
}
