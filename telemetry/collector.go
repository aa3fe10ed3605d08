package telemetry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/vecmath"
)

// Collector accumulates per-tick counters within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32

	windowStartTick int32

	// Counters for the current window
	evaluations int
	neighbors   int
	clamped     int
	faults      int

	speeds []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = max(int32(math.Round(windowDurationSec/dt)), 1)
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
	}
}

// RecordEvaluation records one agent's steering evaluation.
func (c *Collector) RecordEvaluation(neighbors int, clamped bool) {
	c.evaluations++
	c.neighbors += neighbors
	if clamped {
		c.clamped++
	}
}

// RecordFault records a numeric fault.
func (c *Collector) RecordFault() {
	c.faults++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the agents' state at window end and
// resets counters for the next window.
func (c *Collector) Flush(currentTick int32, simTime float64, agents []systems.AgentState, player r2.Vec) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTime,
		Agents:          len(agents),
		Faults:          c.faults,
	}

	if c.evaluations > 0 {
		stats.MeanNeighbors = float64(c.neighbors) / float64(c.evaluations)
		stats.ClampedFraction = float64(c.clamped) / float64(c.evaluations)
	}

	if n := len(agents); n > 0 {
		c.speeds = c.speeds[:0]
		var centroid, heading r2.Vec
		var playerDist float64
		for _, a := range agents {
			c.speeds = append(c.speeds, vecmath.Length(a.Vel))
			centroid = r2.Add(centroid, a.Pos)
			heading = r2.Add(heading, vecmath.NormalizeOrZero(a.Vel))
			playerDist += vecmath.Length(r2.Sub(a.Pos, player))
		}
		centroid = r2.Scale(1/float64(n), centroid)

		var spread float64
		for _, a := range agents {
			spread += vecmath.Length(r2.Sub(a.Pos, centroid))
		}

		stats.SpeedMean, stats.SpeedP10, stats.SpeedP50, stats.SpeedP90 = ComputeDistribution(c.speeds)
		stats.Polarization = vecmath.Length(heading) / float64(n)
		stats.Spread = spread / float64(n)
		stats.CentroidDist = vecmath.Length(centroid)
		stats.MeanPlayerDist = playerDist / float64(n)
	}

	c.Reset(currentTick)
	return stats
}

// Reset discards the current window's counters and starts a new window at tick.
func (c *Collector) Reset(tick int32) {
	c.windowStartTick = tick
	c.evaluations = 0
	c.neighbors = 0
	c.clamped = 0
	c.faults = 0
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
