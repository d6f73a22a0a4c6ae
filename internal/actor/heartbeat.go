package actor

import (
	"context"
	"time"
)

// heartbeatWatchdog ticks every HEARTBEAT for one actor. On each tick: if the
// actor's Progress flag is unset, the kill-switch is tripped at the actor's
// step; otherwise the flag is cleared for the next period, per
// original_source/quickwit-actors' Progress ("if no progress is observed
// until the next heartbeat, the actor will be killed") and spec.md §8's
// worked scenario (a ProcessMessage call that never marks progress must
// reach Terminated within two HEARTBEATs of starting). The main loop marks
// progress immediately before waiting for a message and again immediately
// before dispatching one (spec.md §4.1 steps 2 and 4), so a healthy actor
// always enters a HEARTBEAT period with the flag freshly set; only a single
// period with no mark at all is treated as a miss.
//
// The watchdog also cancels the actor's derived context once the
// kill-switch (from any source: itself, a sibling, or an external caller)
// has tripped, giving a cooperative ProcessMessage implementation a signal
// to abort within one HEARTBEAT.
func heartbeatWatchdog(
	ctx context.Context,
	cancel context.CancelFunc,
	progress *Progress,
	killSwitch *KillSwitchGroup,
	step int64,
	done <-chan struct{},
) {
	ticker := time.NewTicker(HEARTBEAT)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ticker.C:
			if !progress.checkAndClear() {
				killSwitch.Kill(step)
			}

			if !killSwitch.IsAlive(step) {
				cancel()
				return
			}
		}
	}
}
