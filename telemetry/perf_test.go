package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock is a fake clock that advances only when told to.
type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedCollector(window int) (*PerfCollector, *stepClock) {
	clk := &stepClock{t: time.Unix(0, 0)}
	pc := NewPerfCollector(window)
	pc.now = clk.now
	return pc, clk
}

// runTick records one step whose phases take the given durations.
func runTick(pc *PerfCollector, clk *stepClock, durations map[Phase]time.Duration, agents, neighbors, bufferCap int) {
	pc.StartTick()
	for _, ph := range Phases {
		d, ok := durations[ph]
		if !ok {
			continue
		}
		pc.StartPhase(ph)
		clk.advance(d)
	}
	pc.RecordWork(agents, neighbors, bufferCap)
	pc.EndTick()
}

func TestPerfCollectorPhaseBreakdown(t *testing.T) {
	pc, clk := newClockedCollector(10)
	durations := map[Phase]time.Duration{
		PhaseSnapshot:  100 * time.Microsecond,
		PhaseIndex:     200 * time.Microsecond,
		PhaseSteering:  600 * time.Microsecond,
		PhaseCommit:    50 * time.Microsecond,
		PhaseTelemetry: 50 * time.Microsecond,
	}
	for i := 0; i < 4; i++ {
		runTick(pc, clk, durations, 300, 3000, 640)
	}

	s := pc.Stats()
	assert.Equal(t, time.Millisecond, s.AvgTickDuration)
	assert.Equal(t, time.Millisecond, s.MinTickDuration)
	assert.InDelta(t, 1000, s.TicksPerSecond, 1e-9)
	for _, ph := range Phases {
		assert.Equal(t, durations[ph], s.Timing(ph).Avg, ph.String())
		assert.Equal(t, 4, s.Timing(ph).Samples, ph.String())
	}
	assert.InDelta(t, 60, s.Phase[PhaseSteering].Pct, 1e-9)

	// 300 agents per 600µs of steering
	assert.InDelta(t, 500_000, s.AgentsPerSecond, 1e-6)
	assert.InDelta(t, 10, s.NeighborsPerAgent, 1e-9)
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc, clk := newClockedCollector(3)
	for i := 1; i <= 5; i++ {
		runTick(pc, clk, map[Phase]time.Duration{PhaseSteering: time.Duration(i) * time.Millisecond}, 1, 0, 0)
	}

	// Only ticks 3, 4, 5 remain.
	s := pc.Stats()
	assert.Equal(t, 4*time.Millisecond, s.AvgTickDuration)
	assert.Equal(t, 3*time.Millisecond, s.MinTickDuration)
	assert.Equal(t, 5*time.Millisecond, s.MaxTickDuration)
	assert.Equal(t, 3, s.Phase[PhaseSteering].Samples)
	assert.Zero(t, s.Phase[PhaseIndex].Samples)
}

func TestPerfCollectorBufferGrowth(t *testing.T) {
	pc, clk := newClockedCollector(10)
	for _, c := range []int{256, 256, 512, 384, 1024} {
		runTick(pc, clk, map[Phase]time.Duration{PhaseSteering: time.Millisecond}, 10, 10, c)
	}

	s := pc.Stats()
	assert.Equal(t, 1024, s.NeighborBufferCap)
	assert.Equal(t, 2, s.NeighborBufferGrowths)
}

func TestPerfCollectorEmpty(t *testing.T) {
	s := NewPerfCollector(0).Stats()
	assert.Zero(t, s.AvgTickDuration)
	assert.Zero(t, s.AgentsPerSecond)
	assert.Zero(t, s.Timing(Phase(200)).Samples)
	assert.Equal(t, "unknown", Phase(200).String())
}

func TestPerfCollectorFrameTiming(t *testing.T) {
	pc, clk := newClockedCollector(10)
	pc.RecordFrame()
	clk.advance(20 * time.Millisecond)
	pc.RecordFrame()

	s := pc.Stats()
	assert.Equal(t, 20*time.Millisecond, s.FrameDuration)
	assert.InDelta(t, 50, s.FPS, 1e-9)
}

func TestPerfStatsToCSV(t *testing.T) {
	pc, clk := newClockedCollector(2)
	runTick(pc, clk, map[Phase]time.Duration{
		PhaseIndex:    time.Millisecond,
		PhaseSteering: 3 * time.Millisecond,
	}, 100, 400, 128)

	row := pc.Stats().ToCSV(60)
	require.Equal(t, int32(60), row.WindowEnd)
	assert.Equal(t, int64(4000), row.AvgTickUS)
	assert.InDelta(t, 25, row.IndexPct, 1e-9)
	assert.InDelta(t, 75, row.SteeringPct, 1e-9)
	assert.InDelta(t, 4, row.NeighborsPerAgent, 1e-9)
	assert.Equal(t, 128, row.BufferCap)
}
