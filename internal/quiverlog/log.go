// Package quiverlog provides the ambient structured logging facade shared by
// every quiver package. It mirrors the btclog/slog dual-handler setup used by
// the daemon's own subsystems: each package keeps an unexported, swappable
// btclog.Logger that defaults to a no-op so library code never panics on a
// nil logger before the daemon wires a real one up.
package quiverlog

import (
	"github.com/btcsuite/btclog/v2"
)

// Disabled is a logger that discards all log records. Packages default to
// this logger until UseLogger is called on them from the daemon's main.
var Disabled = btclog.Disabled

// NewSubLogger derives a prefixed logger for a subsystem from the root
// logger, following the lnd/btcsuite convention of a single combined handler
// fanned out to per-subsystem loggers via WithPrefix.
func NewSubLogger(root btclog.Logger, subsystem string) btclog.Logger {
	if root == nil {
		return Disabled
	}

	return root.WithPrefix(subsystem)
}
