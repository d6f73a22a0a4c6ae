package gc

import "github.com/btcsuite/btclog/v2"

// log is the package-level subsystem logger, swappable via UseLogger.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by garbage collection.
func UseLogger(logger btclog.Logger) {
	log = logger
}
