package game

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/telemetry"
	"github.com/pthm-cable/flock/vecmath"
)

const testDT = 1.0 / 60.0

// quietConfig returns a config with every steering factor zeroed and no
// initial population.
func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.Population.Count = 0
	s := &cfg.Steering
	s.PlayerPolicy = config.PolicyFollow
	s.Cohesion = false
	s.Centering = false
	s.FollowFactor = 0
	s.AvoidFactor = 0
	s.CenterFactor = 0
	s.SeparationFactor = 0
	s.AlignmentFactor = 0
	s.CohesionFactor = 0
	cfg.Parallel.Enabled = false
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config) *Game {
	t.Helper()
	g, err := NewGameWithOptions(Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(g.Unload)
	return g
}

func TestStepWithoutAgents(t *testing.T) {
	g := newTestGame(t, quietConfig())

	require.NoError(t, g.Step(testDT))
	assert.Equal(t, int32(1), g.Tick())
	assert.Empty(t, g.Agents())
}

func TestTwoAgentsSeparate(t *testing.T) {
	cfg := quietConfig()
	cfg.Steering.MinDistance = 0.5
	cfg.Steering.SeparationFactor = 1.0
	g := newTestGame(t, cfg)
	g.TrackPlayer(r2.Vec{X: 1000, Y: 1000}, true)

	a := g.SpawnBird(r2.Vec{X: 0, Y: 0}, r2.Vec{})
	b := g.SpawnBird(r2.Vec{X: 1, Y: 0}, r2.Vec{})

	require.NoError(t, g.Step(testDT))

	sa, ok := g.Bird(a)
	require.True(t, ok)
	sb, ok := g.Bird(b)
	require.True(t, ok)
	assert.Greater(t, sb.Pos.X-sa.Pos.X, 1.0)
	assert.Less(t, sa.Vel.X, 0.0)
	assert.Greater(t, sb.Vel.X, 0.0)
}

func TestCenteringPullsTowardOrigin(t *testing.T) {
	cfg := quietConfig()
	cfg.Steering.Centering = true
	cfg.Steering.CenterFactor = 1.0
	g := newTestGame(t, cfg)

	id := g.SpawnBird(r2.Vec{X: 100, Y: 0}, r2.Vec{})
	require.NoError(t, g.Step(testDT))

	s, ok := g.Bird(id)
	require.True(t, ok)
	assert.Less(t, s.Vel.X, 0.0)
	assert.InDelta(t, 0, s.Vel.Y, 1e-12)
	assert.Greater(t, vecmath.Length(s.Vel), 0.0)
	assert.Less(t, s.Pos.X, 100.0)
}

func TestVelocityBandAndForceLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Population.Count = 200
	cfg.Population.HalfWidth = 15
	g := newTestGame(t, cfg)

	const eps = 1e-9
	for i := 0; i < 60; i++ {
		g.TrackPlayer(g.ScriptedPlayer(g.SimTime()+testDT), true)
		require.NoError(t, g.Step(testDT))

		for _, in := range g.parallel.intents {
			assert.LessOrEqual(t, vecmath.Length(in.Forces.Total), cfg.Integration.MaxSteeringForce+eps)
		}
		for _, a := range g.Agents() {
			speed := vecmath.Length(a.Vel)
			require.GreaterOrEqual(t, speed, cfg.Integration.MinVelocity-eps, "agent %d tick %d", a.ID, g.Tick())
			require.LessOrEqual(t, speed, cfg.Integration.MaxVelocity+eps, "agent %d tick %d", a.ID, g.Tick())
		}
	}
}

func runPath(t *testing.T, cfg *config.Config, steps int) []r2.Vec {
	t.Helper()
	g := newTestGame(t, cfg)
	for i := 0; i < steps; i++ {
		g.TrackPlayer(g.ScriptedPlayer(g.SimTime()+testDT), true)
		require.NoError(t, g.Step(testDT))
	}
	var out []r2.Vec
	for _, a := range g.Agents() {
		out = append(out, a.Pos, a.Vel)
	}
	return out
}

func TestDeterminism(t *testing.T) {
	for _, kind := range []string{config.IndexKDTree, config.IndexGrid} {
		t.Run(kind, func(t *testing.T) {
			cfg := config.Default()
			cfg.Population.Count = 300
			cfg.Index.Kind = kind

			first := runPath(t, cfg.Clone(), 40)
			second := runPath(t, cfg.Clone(), 40)
			assert.Equal(t, first, second)
		})
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	cfg := config.Default()
	cfg.Population.Count = 300

	seq := cfg.Clone()
	seq.Parallel.Enabled = false

	par := cfg.Clone()
	par.Parallel.Enabled = true
	par.Parallel.Threshold = 1
	par.Parallel.Workers = 4

	assert.Equal(t, runPath(t, seq, 40), runPath(t, par, 40))
}

func TestSeedChangesPopulation(t *testing.T) {
	cfg := quietConfig()
	cfg.Population.Count = 50
	cfg.Population.HalfWidth = 10

	g1 := newTestGame(t, cfg)
	g2 := newTestGame(t, cfg)
	g3, err := NewGameWithOptions(Options{Config: cfg, Seed: 99})
	require.NoError(t, err)
	defer g3.Unload()

	agents := g1.Agents()
	require.Len(t, agents, 50)
	for i, a := range agents {
		assert.Equal(t, uint32(i), a.ID)
		assert.Equal(t, r2.Vec{}, a.Vel)
		assert.LessOrEqual(t, math.Abs(a.Pos.X), 10.0)
		assert.LessOrEqual(t, math.Abs(a.Pos.Y), 10.0)
	}
	assert.Equal(t, agents, g2.Agents())
	assert.NotEqual(t, agents, g3.Agents())
}

func TestStepPreconditions(t *testing.T) {
	g := newTestGame(t, quietConfig())
	g.SpawnBird(r2.Vec{X: 1}, r2.Vec{})

	err := g.Step(-testDT)
	assert.ErrorIs(t, err, ErrNegativeDelta)
	assert.ErrorIs(t, g.Step(math.NaN()), ErrNegativeDelta)

	g.RemovePlayer()
	assert.ErrorIs(t, g.Step(testDT), ErrNoPlayer)
	assert.Equal(t, int32(0), g.Tick())

	g.SpawnPlayer(r2.Vec{})
	assert.NoError(t, g.Step(0))
	assert.Equal(t, int32(1), g.Tick())
}

func TestHaltPolicy(t *testing.T) {
	cfg := quietConfig()
	cfg.Faults.Policy = config.FaultHalt
	g := newTestGame(t, cfg)

	good := g.SpawnBird(r2.Vec{X: 1}, r2.Vec{X: 0.5})
	bad := g.SpawnBird(r2.Vec{X: -1}, r2.Vec{X: math.Inf(1)})
	before := g.Agents()

	err := g.Step(testDT)
	require.Error(t, err)

	var fault *NumericFaultError
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, bad, fault.ID)
	assert.Equal(t, int32(0), g.Tick())
	assert.Equal(t, before, g.Agents(), "halt must not commit any agent")

	_, ok := g.Bird(good)
	assert.True(t, ok)
}

func TestResetPolicy(t *testing.T) {
	cfg := quietConfig()
	cfg.Faults.Policy = config.FaultReset
	g := newTestGame(t, cfg)

	good := g.SpawnBird(r2.Vec{X: 1}, r2.Vec{X: 0.5})
	bad := g.SpawnBird(r2.Vec{X: -1}, r2.Vec{X: math.Inf(1)})

	require.NoError(t, g.Step(testDT))
	assert.Equal(t, int32(1), g.Tick())

	s, ok := g.Bird(bad)
	require.True(t, ok)
	assert.Equal(t, r2.Vec{}, s.Pos)
	assert.Equal(t, r2.Vec{}, s.Vel)

	s, ok = g.Bird(good)
	require.True(t, ok)
	assert.Greater(t, s.Pos.X, 1.0)

	require.NoError(t, g.Step(testDT))
	for _, a := range g.Agents() {
		assert.True(t, vecmath.IsFinite(a.Pos))
		assert.True(t, vecmath.IsFinite(a.Vel))
	}
}

func TestRemoveBirdReusesID(t *testing.T) {
	g := newTestGame(t, quietConfig())

	for i := 0; i < 4; i++ {
		g.SpawnBird(r2.Vec{X: float64(i)}, r2.Vec{})
	}
	assert.True(t, g.RemoveBird(2))
	assert.False(t, g.RemoveBird(2))
	assert.Equal(t, 3, g.BirdCount())

	_, ok := g.Bird(2)
	assert.False(t, ok)

	assert.Equal(t, uint32(2), g.SpawnBird(r2.Vec{}, r2.Vec{}))
	assert.Equal(t, uint32(4), g.SpawnBird(r2.Vec{}, r2.Vec{}))
	require.NoError(t, g.Step(testDT))
	assert.Len(t, g.Agents(), 5)
}

func TestTrackPlayer(t *testing.T) {
	g := newTestGame(t, quietConfig())

	g.TrackPlayer(r2.Vec{X: 3, Y: 4}, true)
	pos, ok := g.PlayerPosition()
	require.True(t, ok)
	assert.Equal(t, r2.Vec{X: 3, Y: 4}, pos)
	assert.Equal(t, r2.Vec{X: 3, Y: 4}, g.PlayerVelocity())

	// Cursor left the window: keep the last known position.
	g.TrackPlayer(r2.Vec{X: -50, Y: 0}, false)
	pos, _ = g.PlayerPosition()
	assert.Equal(t, r2.Vec{X: 3, Y: 4}, pos)
	assert.Equal(t, r2.Vec{}, g.PlayerVelocity())

	g.TrackPlayer(r2.Vec{X: math.NaN()}, true)
	pos, _ = g.PlayerPosition()
	assert.Equal(t, r2.Vec{X: 3, Y: 4}, pos)
}

func TestScriptedPlayer(t *testing.T) {
	cfg := quietConfig()
	cfg.Player.OrbitRadius = 20
	cfg.Player.OrbitSpeed = math.Pi
	g := newTestGame(t, cfg)

	p := g.ScriptedPlayer(0.5)
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 20, p.Y, 1e-9)

	cfg.Player.OrbitRadius = 0
	assert.Equal(t, r2.Vec{}, g.ScriptedPlayer(0.5))
}

func TestHeadlessTelemetry(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Population.Count = 40
	cfg.Population.HalfWidth = 10
	cfg.Telemetry.TrajectoryEvery = 5

	var windows []telemetry.WindowStats
	metrics := telemetry.NewMetrics()
	g, err := NewGameWithOptions(Options{
		Config:         cfg,
		StatsWindowSec: 0.1,
		OutputDir:      dir,
		Headless:       true,
		StepsPerUpdate: 2,
		Metrics:        metrics,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		g.UpdateHeadless()
	}
	assert.Equal(t, int32(20), g.Tick())
	require.NoError(t, g.Close())

	require.Len(t, windows, 3)
	assert.Equal(t, int32(6), windows[0].WindowEndTick)
	assert.Equal(t, 40, windows[0].Agents)
	assert.Greater(t, windows[0].MeanNeighbors, 0.0)

	for _, name := range []string{"telemetry.csv", "perf.csv", "trajectory.csv", "config.yaml"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "flock_ticks_total" {
			assert.Equal(t, 20.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestSnapshotRestoreReplays(t *testing.T) {
	cfg := config.Default()
	cfg.Population.Count = 100

	original := newTestGame(t, cfg.Clone())
	for i := 0; i < 10; i++ {
		original.UpdateHeadless()
	}
	snap := original.CreateSnapshot()
	for i := 0; i < 10; i++ {
		original.UpdateHeadless()
	}

	replay := newTestGame(t, cfg.Clone())
	require.NoError(t, replay.RestoreSnapshot(snap))
	assert.Equal(t, snap.Tick, replay.Tick())
	for i := 0; i < 10; i++ {
		replay.UpdateHeadless()
	}

	assert.Equal(t, original.Tick(), replay.Tick())
	assert.Equal(t, original.Agents(), replay.Agents())
}

func TestSetStepsPerUpdate(t *testing.T) {
	g := newTestGame(t, quietConfig())

	g.SetStepsPerUpdate(0)
	assert.Equal(t, 1, g.StepsPerUpdate())
	g.SetStepsPerUpdate(50)
	assert.Equal(t, 10, g.StepsPerUpdate())
}

func TestStepTimesEveryPhase(t *testing.T) {
	cfg := quietConfig()
	cfg.Steering.NeighborQuery = config.QueryKNearest
	cfg.Steering.K = 10
	cfg.Steering.QueryRadius = 5
	g := newTestGame(t, cfg)

	// 20 birds inside a 2x2 square all see k neighbors.
	for i := 0; i < 20; i++ {
		g.SpawnBird(r2.Vec{X: float64(i%5) * 0.5, Y: float64(i/5) * 0.5}, r2.Vec{X: 0.5})
	}

	const steps = 5
	for i := 0; i < steps; i++ {
		require.NoError(t, g.Step(testDT))
	}

	stats := g.PerfStats()
	for _, ph := range telemetry.Phases {
		assert.Equal(t, steps, stats.Timing(ph).Samples, "phase %s", ph)
	}
	assert.Positive(t, stats.AvgTickDuration)
	assert.Positive(t, stats.AgentsPerSecond)
	assert.InDelta(t, 10, stats.NeighborsPerAgent, 1e-9)
	assert.GreaterOrEqual(t, stats.NeighborBufferCap, 64)
}

func TestRestoreSnapshotRejectsDuplicateIDs(t *testing.T) {
	g := newTestGame(t, quietConfig())
	keep := g.SpawnBird(r2.Vec{X: 1}, r2.Vec{})

	snap := telemetry.NewSnapshot(1, 40, 1, r2.Vec{}, []systems.AgentState{
		{ID: 3, Pos: r2.Vec{X: 2}},
		{ID: 3, Pos: r2.Vec{X: 4}},
	})
	err := g.RestoreSnapshot(snap)
	require.Error(t, err)

	assert.Equal(t, 1, g.BirdCount())
	_, ok := g.Bird(keep)
	assert.True(t, ok)
	assert.Zero(t, g.Tick())
}
