package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSink struct {
	count atomic.Int64
	fail  atomic.Bool
}

func (s *countingSink) SendTick(ctx context.Context) bool {
	if s.fail.Load() {
		return false
	}
	s.count.Add(1)
	return true
}

func TestClockStartsIdle(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	c := New(time.Millisecond, sink)
	defer c.Terminate()

	require.Equal(t, Idle, c.State())

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, sink.count.Load())
}

// TestClockRunPauseRun follows spec.md §8 scenario 3 with wider tick
// windows to absorb timer jitter: with a 1ms period, running for ~10ms
// yields between 5 and 15 ticks; pausing for 30ms yields none more;
// resuming for ~20ms yields at least one more.
func TestClockRunPauseRun(t *testing.T) {
	sink := &countingSink{}
	c := New(time.Millisecond, sink)
	defer c.Terminate()

	c.Run()
	time.Sleep(10 * time.Millisecond)
	afterFirstRun := sink.count.Load()
	require.GreaterOrEqual(t, afterFirstRun, int64(5))
	require.LessOrEqual(t, afterFirstRun, int64(15))

	c.Pause()
	require.Equal(t, Idle, c.State())
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, afterFirstRun, sink.count.Load(), "no ticks while paused")

	c.Run()
	time.Sleep(20 * time.Millisecond)
	total := sink.count.Load()
	require.Greater(t, total, afterFirstRun)
}

func TestClockTerminateAbsorbsFurtherCommands(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	c := New(time.Millisecond, sink)

	c.Run()
	c.Terminate()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("clock should have terminated")
	}
	require.Equal(t, Terminated, c.State())

	// Further commands are no-ops once terminated.
	c.Run()
	require.Equal(t, Terminated, c.State())

	countAtTerminate := sink.count.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, countAtTerminate, sink.count.Load())
}

func TestClockAutoTerminatesOnSendFailure(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	sink.fail.Store(true)

	c := New(time.Millisecond, sink)
	c.Run()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("clock should auto-terminate when the sink rejects a tick")
	}
	require.Equal(t, Terminated, c.State())
}
