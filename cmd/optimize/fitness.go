package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params       *ParamVector
	maxTicks     int32
	seeds        []int64
	baseConfig   *config.Config
	statsWindow  float64
	targetSpread float64

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, targetSpread float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:       params,
		maxTicks:     maxTicks,
		seeds:        seeds,
		baseConfig:   baseCfg,
		statsWindow:  5.0,
		targetSpread: targetSpread,
		bestFitness:  math.Inf(1),
	}
}

// BestWindows returns the window stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean flock quality across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, faulted := fe.runSimulation(x, s)
			q := 0.0
			if !faulted {
				q = fe.computeQuality(windows)
			}
			results[idx] = seedResult{quality: q, windows: windows}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	best := -1.0
	var bestWindows []telemetry.WindowStats
	for _, r := range results {
		total += r.quality
		if r.quality > best {
			best = r.quality
			bestWindows = r.windows
		}
	}
	quality := total / float64(len(fe.seeds))
	fitness := -quality

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestWindows = bestWindows
	}
	fe.lastQuality = quality
	fe.mu.Unlock()

	return fitness
}

// runSimulation executes a single headless run against the scripted
// orbiting player. faulted is true if the run stopped on a numeric fault.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (windows []telemetry.WindowStats, faulted bool) {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Faults.Policy = config.FaultHalt
	// Seeds already run concurrently.
	cfg.Parallel.Enabled = false

	g, err := game.NewGameWithOptions(game.Options{
		Config:         cfg,
		Seed:           seed,
		Headless:       true,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return nil, true
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
		if g.Paused() {
			return windows, true
		}
	}
	return windows, false
}

// Quality component weights.
const (
	qualityWeightPolarization = 0.40
	qualityWeightSpread       = 0.35
	qualityWeightClearance    = 0.25

	qualityWarmupWindows = 2 // skip first N windows (warmup)
)

// computeQuality scores a run in [0, 1] from its window stats: aligned
// headings, a spread near the target, and birds keeping clear of the
// player's avoid band.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]
	clearDist := fe.baseConfig.Steering.MaxAvoidDistance

	var polSum, spreadSum, clearSum float64
	for _, w := range valid {
		if w.Faults > 0 {
			return 0
		}
		polSum += w.Polarization

		relErr := (w.Spread - fe.targetSpread) / fe.targetSpread
		spreadSum += math.Exp(-relErr * relErr)

		if clearDist > 0 {
			clearSum += clamp01(w.MeanPlayerDist / clearDist)
		} else {
			clearSum++
		}
	}

	n := float64(len(valid))
	quality := qualityWeightPolarization*polSum/n +
		qualityWeightSpread*spreadSum/n +
		qualityWeightClearance*clearSum/n

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
