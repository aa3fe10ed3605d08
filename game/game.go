package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/telemetry"
	"github.com/pthm-cable/flock/vecmath"
)

var (
	// ErrNoPlayer is returned by Step when the world has no player entity.
	ErrNoPlayer = errors.New("no player entity")
	// ErrNegativeDelta is returned by Step for a negative or non-finite dt.
	ErrNegativeDelta = errors.New("negative time delta")
)

// NumericFaultError reports an agent whose force, velocity or position
// became non-finite during a step.
type NumericFaultError struct {
	ID       uint32
	Tick     int32
	Force    r2.Vec
	Velocity r2.Vec
	Position r2.Vec
}

func (e *NumericFaultError) Error() string {
	return fmt.Sprintf("numeric fault: agent %d at tick %d (force=%v velocity=%v position=%v)",
		e.ID, e.Tick, e.Force, e.Velocity, e.Position)
}

// Options configures game initialization.
type Options struct {
	Config         *config.Config // nil = config.Default()
	Seed           int64          // 0 = population.seed from config
	LogStats       bool
	StatsWindowSec float64 // 0 = telemetry.stats_window from config
	SnapshotDir    string
	OutputDir      string
	Headless       bool
	StepsPerUpdate int // 0 = physics.steps_per_update from config
	Metrics        *telemetry.Metrics
	StatsCallback  func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	world   *ecs.World
	rng     *rand.Rand
	rngSeed int64

	birdMap    *ecs.Map3[components.Position, components.Velocity, components.Bird]
	birdFilter *ecs.Filter3[components.Position, components.Velocity, components.Bird]
	playerMap  *ecs.Map2[components.Position, components.Player]

	player    ecs.Entity
	hasPlayer bool

	// Bird entities by ID, and IDs released by RemoveBird
	entities map[uint32]ecs.Entity
	freeIDs  []uint32
	nextID   uint32

	steering *systems.Steering
	index    systems.Index
	snapshot *systems.Snapshot
	points   []systems.Point
	parallel *parallelState

	// State
	tick           int32
	simTime        float64
	paused         bool
	stepsPerUpdate int

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	bookmarkDetector *telemetry.BookmarkDetector
	metrics          *telemetry.Metrics
	statsCallback    func(telemetry.WindowStats)
	lastStats        *telemetry.WindowStats
	logStats         bool
	snapshotDir      string
	trajectoryEvery  int
}

// NewGameWithOptions creates a game with a player at the origin and the
// configured initial population.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	index, err := systems.NewIndex(cfg.Index.Kind, cfg.Index.CellSize)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Population.Seed
	}
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	steps := opts.StepsPerUpdate
	if steps <= 0 {
		steps = max(cfg.Physics.StepsPerUpdate, 1)
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:            cfg,
		world:          world,
		rng:            rand.New(rand.NewSource(seed)),
		rngSeed:        seed,
		birdMap:        ecs.NewMap3[components.Position, components.Velocity, components.Bird](world),
		birdFilter:     ecs.NewFilter3[components.Position, components.Velocity, components.Bird](world),
		playerMap:      ecs.NewMap2[components.Position, components.Player](world),
		entities:       make(map[uint32]ecs.Entity, cfg.Population.Count),
		steering:       systems.NewSteering(systems.ParamsFromConfig(cfg)),
		index:          index,
		snapshot:       systems.NewSnapshot(cfg.Population.Count),
		parallel:       newParallelState(cfg.Parallel.Workers),
		stepsPerUpdate: steps,

		collector:        telemetry.NewCollector(statsWindow, cfg.Physics.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		metrics:          opts.Metrics,
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
		trajectoryEvery:  cfg.Telemetry.TrajectoryEvery,
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			om.Close()
			return nil, fmt.Errorf("writing config snapshot: %w", err)
		}
		g.outputManager = om
	}

	g.SpawnPlayer(r2.Vec{})
	g.spawnInitialPopulation()

	return g, nil
}

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Params returns the current steering parameters.
func (g *Game) Params() systems.Params {
	return g.steering.Params
}

// SetParams replaces the steering parameters used from the next step on.
func (g *Game) SetParams(p systems.Params) {
	g.steering.Params = p
}

// Step advances the simulation by dt seconds.
//
// All agents are evaluated against the positions and velocities they had at
// the start of the step; results are committed only after every agent has
// been evaluated. Under the halt fault policy a fault aborts the step with a
// *NumericFaultError and leaves the world unchanged.
func (g *Game) Step(dt float64) error {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrNegativeDelta, dt)
	}
	player, ok := g.PlayerPosition()
	if !ok {
		return ErrNoPlayer
	}

	start := time.Now()
	g.perfCollector.StartTick()

	// Phase A: snapshot start-of-tick state and rebuild the index
	g.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	g.takeSnapshot()

	g.perfCollector.StartPhase(telemetry.PhaseIndex)
	g.points = g.snapshot.Points(g.points[:0])
	g.index.Rebuild(g.points)

	// Phase B: evaluate every agent against the snapshot
	g.perfCollector.StartPhase(telemetry.PhaseSteering)
	g.evaluate(player, dt)
	neighbors, bufferCap := g.parallel.workload()
	g.perfCollector.RecordWork(len(g.parallel.snapshots), neighbors, bufferCap)

	// Phase C: resolve faults and commit
	g.perfCollector.StartPhase(telemetry.PhaseCommit)
	if g.cfg.Faults.Policy == config.FaultHalt {
		if err := g.firstFault(); err != nil {
			g.perfCollector.EndTick()
			return err
		}
	}
	clamped, faults := g.applyIntents()

	g.tick++
	g.simTime += dt

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	if g.trajectoryEvery > 0 && g.outputManager != nil && g.tick%int32(g.trajectoryEvery) == 0 {
		if err := g.outputManager.WriteTrajectory(g.tick, g.Agents()); err != nil {
			slog.Error("failed to write trajectory", "error", err)
		}
	}
	g.flushTelemetry()
	g.perfCollector.EndTick()

	g.metrics.ObserveTick(time.Since(start), len(g.parallel.snapshots), clamped, faults)
	return nil
}

// takeSnapshot copies every bird's state into the snapshot, in ECS order.
func (g *Game) takeSnapshot() {
	g.snapshot.Reset()
	snaps := g.parallel.snapshots[:0]

	query := g.birdFilter.Query()
	for query.Next() {
		pos, vel, bird := query.Get()
		state := systems.AgentState{ID: bird.ID, Pos: pos.Vec(), Vel: vel.Vec()}
		g.snapshot.Add(state)
		snaps = append(snaps, agentSnapshot{Entity: query.Entity(), State: state})
	}
	g.parallel.snapshots = snaps
}

// firstFault returns the fault of the first faulted agent in snapshot order.
func (g *Game) firstFault() error {
	for i := range g.parallel.intents {
		in := &g.parallel.intents[i]
		if in.Fault {
			return &NumericFaultError{
				ID:       g.parallel.snapshots[i].State.ID,
				Tick:     g.tick,
				Force:    in.Forces.Total,
				Velocity: in.Vel,
				Position: in.Pos,
			}
		}
	}
	return nil
}

// applyIntents writes the evaluated state back to the ECS components.
// Faulted agents are restored to their start-of-tick state, or to rest at
// the origin if that state was itself non-finite.
func (g *Game) applyIntents() (clamped, faults int) {
	for i := range g.parallel.snapshots {
		snap := &g.parallel.snapshots[i]
		in := &g.parallel.intents[i]

		pos, vel, _ := g.birdMap.Get(snap.Entity)
		if pos == nil || vel == nil {
			continue
		}

		if in.Fault {
			faults++
			g.collector.RecordFault()
			restorePos, restoreVel := snap.State.Pos, snap.State.Vel
			if !vecmath.IsFinite(restorePos) || !vecmath.IsFinite(restoreVel) {
				restorePos, restoreVel = r2.Vec{}, r2.Vec{}
			}
			slog.Warn("numeric fault, agent reset",
				"id", snap.State.ID,
				"tick", g.tick,
				"force", in.Forces.Total,
				"velocity", in.Vel,
			)
			pos.Set(restorePos)
			vel.Set(restoreVel)
			continue
		}

		if in.Forces.Clamped() {
			clamped++
		}
		g.collector.RecordEvaluation(in.Forces.Neighbors, in.Forces.Clamped())
		pos.Set(in.Pos)
		vel.Set(in.Vel)
	}
	return clamped, faults
}

// UpdateHeadless runs the configured number of fixed steps without
// graphics, moving the player along its scripted path first. Errors are
// logged and pause the game.
func (g *Game) UpdateHeadless() {
	if g.paused {
		return
	}
	dt := g.cfg.Physics.DT
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.TrackPlayer(g.ScriptedPlayer(g.simTime+dt), true)
		if err := g.Step(dt); err != nil {
			slog.Error("step failed", "tick", g.tick, "error", err)
			g.paused = true
			return
		}
	}
}

// ScriptedPlayer returns the player position of the headless script at sim
// time t: a circle of player.orbit_radius around the origin, or the origin
// when the radius is zero.
func (g *Game) ScriptedPlayer(t float64) r2.Vec {
	r := g.cfg.Player.OrbitRadius
	if r <= 0 {
		return r2.Vec{}
	}
	a := t * g.cfg.Player.OrbitSpeed
	return r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
}

// Tick returns the number of completed steps.
func (g *Game) Tick() int32 {
	return g.tick
}

// SimTime returns the simulated seconds elapsed.
func (g *Game) SimTime() float64 {
	return g.simTime
}

// Paused reports whether stepping is paused.
func (g *Game) Paused() bool {
	return g.paused
}

// SetPaused pauses or resumes UpdateHeadless and the windowed loop.
func (g *Game) SetPaused(paused bool) {
	g.paused = paused
}

// StepsPerUpdate returns the number of steps per update call.
func (g *Game) StepsPerUpdate() int {
	return g.stepsPerUpdate
}

// SetStepsPerUpdate sets the number of steps per update call, clamped to [1, 10].
func (g *Game) SetStepsPerUpdate(n int) {
	g.stepsPerUpdate = min(max(n, 1), 10)
}

// LastStats returns the most recently flushed stats window, or nil before
// the first flush.
func (g *Game) LastStats() *telemetry.WindowStats {
	return g.lastStats
}

// RecordFrame marks a rendered frame for FPS tracking.
func (g *Game) RecordFrame() {
	g.perfCollector.RecordFrame()
}

// PerfStats returns the rolling step timing breakdown.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// Close stops the worker pool and flushes output files.
func (g *Game) Close() error {
	g.parallel.stopWorkers()
	if g.outputManager != nil {
		err := g.outputManager.Close()
		g.outputManager = nil
		return err
	}
	return nil
}

// Unload releases all resources, logging any close error.
func (g *Game) Unload() {
	if err := g.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
	}
}
