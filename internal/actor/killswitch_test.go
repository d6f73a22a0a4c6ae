package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKillSwitchGroupFreshIsAlive(t *testing.T) {
	t.Parallel()

	g := NewKillSwitchGroup()
	s0 := g.NextStep()
	s1 := g.NextStep()

	require.True(t, g.IsAlive(s0))
	require.True(t, g.IsAlive(s1))
	require.False(t, g.IsTripped())
}

func TestKillSwitchGroupKillsLowerOrEqualSteps(t *testing.T) {
	t.Parallel()

	g := NewKillSwitchGroup()
	s0 := g.NextStep()
	s1 := g.NextStep()
	s2 := g.NextStep()

	g.Kill(s1)

	require.False(t, g.IsAlive(s0))
	require.False(t, g.IsAlive(s1))
	require.True(t, g.IsAlive(s2))
	require.True(t, g.IsTripped())
}

func TestKillSwitchGroupFloorNeverLowers(t *testing.T) {
	t.Parallel()

	g := NewKillSwitchGroup()
	for i := 0; i < 5; i++ {
		g.NextStep()
	}

	g.Kill(3)
	g.Kill(1) // stale, must not resurrect steps 2 and 3

	require.False(t, g.IsAlive(2))
	require.False(t, g.IsAlive(3))
	require.True(t, g.IsAlive(4))
}

func TestKillSwitchGroupKillAll(t *testing.T) {
	t.Parallel()

	g := NewKillSwitchGroup()
	var steps []int64
	for i := 0; i < 4; i++ {
		steps = append(steps, g.NextStep())
	}

	g.KillAll()

	for _, s := range steps {
		require.False(t, g.IsAlive(s))
	}
}

// TestKillSwitchGroupConcurrentKillIsMax exercises the CAS-max loop under
// concurrent, out-of-order Kill calls: the floor must end up at the highest
// step ever passed to Kill, regardless of goroutine scheduling order.
func TestKillSwitchGroupConcurrentKillIsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := NewKillSwitchGroup()
		n := rapid.IntRange(1, 50).Draw(rt, "n")
		for i := 0; i < n; i++ {
			g.NextStep()
		}

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(step int64) {
				defer wg.Done()
				g.Kill(step)
			}(int64(i))
		}
		wg.Wait()

		if g.IsAlive(int64(n - 1)) {
			rt.Fatalf("highest step %d should be dead after concurrent kills", n-1)
		}
	})
}
