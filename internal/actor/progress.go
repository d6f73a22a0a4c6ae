package actor

import (
	"sync/atomic"
	"time"
)

// HEARTBEAT is the liveness interval from spec.md §4.1. An actor silent for
// one HEARTBEAT is considered hung. Exposed as a var (not a const) so tests
// can shrink it to reason about liveness deadlines quickly, per spec.md
// §8's heartbeat-timeout scenario.
var HEARTBEAT = time.Second

// Progress is the single-bit liveness flag from spec.md §3: set by the
// actor while it is working, reset by the heartbeat watchdog on each tick.
// If the watchdog observes it still unset at the next tick, it trips the
// kill-switch (see heartbeat.go for why this is a single miss, not two).
type Progress struct {
	set atomic.Bool
}

// Mark records progress. An actor must call this at least once per
// HEARTBEAT during any long-running ProcessMessage call.
func (p *Progress) Mark() {
	p.set.Store(true)
}

// checkAndClear is called by the heartbeat watchdog. It returns the
// previous value and clears the flag, implementing the
// unset -> (watchdog trips) / set -> unset transition from spec.md §3.
func (p *Progress) checkAndClear() bool {
	return p.set.Swap(false)
}
