package actor

import "github.com/btcsuite/btclog/v2"

// log is the package-level subsystem logger, swappable via UseLogger. This
// mirrors the teacher's internal/baselib/actor convention (and the broader
// lnd/btcsuite convention) of a package-global btclog.Logger defaulting to a
// no-op sink until the binary wires one in.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by the actor runtime. Call
// this once during binary startup, e.g.:
//
//	actorLogger := btclog.NewSLogger(handler).SubSystem("ACTR")
//	actor.UseLogger(actorLogger)
func UseLogger(logger btclog.Logger) {
	log = logger
}
