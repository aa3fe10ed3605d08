package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Agents int `csv:"agents"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Flock shape (sampled at window end)
	Polarization   float64 `csv:"polarization"`     // |mean unit heading|, 1 = fully aligned
	Spread         float64 `csv:"spread"`           // mean distance to the flock centroid
	CentroidDist   float64 `csv:"centroid_dist"`    // centroid distance from origin
	MeanPlayerDist float64 `csv:"mean_player_dist"` // mean agent distance to the player

	// Accumulated over the window
	MeanNeighbors   float64 `csv:"mean_neighbors"`
	ClampedFraction float64 `csv:"clamped_fraction"` // share of evaluations whose force was clamped
	Faults          int     `csv:"faults"`
}

// Percentile returns the p-th percentile of a sorted slice using gonum's
// empirical quantile. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(min(max(p, 0), 1), stat.Empirical, sorted, nil)
}

// ComputeDistribution calculates mean and percentiles of values.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("spread", s.Spread),
		slog.Float64("centroid_dist", s.CentroidDist),
		slog.Float64("mean_player_dist", s.MeanPlayerDist),
		slog.Float64("mean_neighbors", s.MeanNeighbors),
		slog.Float64("clamped_fraction", s.ClampedFraction),
		slog.Int("faults", s.Faults),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"speed_mean", s.SpeedMean,
		"speed_p50", s.SpeedP50,
		"polarization", s.Polarization,
		"spread", s.Spread,
		"mean_player_dist", s.MeanPlayerDist,
		"mean_neighbors", s.MeanNeighbors,
		"clamped_fraction", s.ClampedFraction,
		"faults", s.Faults,
	)
}
