package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of a simulation step.
type Phase uint8

const (
	PhaseSnapshot Phase = iota
	PhaseIndex
	PhaseSteering
	PhaseCommit
	PhaseTelemetry
	numPhases
)

var phaseKeys = [numPhases]string{"snapshot", "index", "steering", "commit", "telemetry"}

// String returns the phase key used in logs and CSV headers.
func (p Phase) String() string {
	if p < numPhases {
		return phaseKeys[p]
	}
	return "unknown"
}

// Phases lists the step phases in execution order.
var Phases = []Phase{PhaseSnapshot, PhaseIndex, PhaseSteering, PhaseCommit, PhaseTelemetry}

// tickSample is the timing and steering workload of one step.
type tickSample struct {
	total     time.Duration
	phases    [numPhases]time.Duration
	entered   [numPhases]bool
	agents    int
	neighbors int
}

// PerfCollector keeps a ring of recent step samples. Phases are timed
// back to back: starting one closes the previous.
type PerfCollector struct {
	now func() time.Time

	ring   []tickSample
	next   int
	filled int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	// Combined capacity of the workers' neighbor buffers, and how often it grew
	bufferCap     int
	bufferGrowths int

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over the last window steps.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		now:  time.Now,
		ring: make([]tickSample, window),
	}
}

// StartTick begins a step sample.
func (p *PerfCollector) StartTick() {
	p.cur = tickSample{}
	p.tickStart = p.now()
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	now := p.now()
	p.closePhase(now)
	p.phase = ph
	p.phaseStart = now
	p.inPhase = true
	p.cur.entered[ph] = true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// RecordWork notes the steering workload of the current step: agents
// evaluated, neighbors visited across all of them, and the combined
// capacity of the neighbor scratch buffers after evaluation.
func (p *PerfCollector) RecordWork(agents, neighbors, bufferCap int) {
	p.cur.agents = agents
	p.cur.neighbors = neighbors
	if bufferCap > p.bufferCap {
		if p.bufferCap > 0 {
			p.bufferGrowths++
		}
		p.bufferCap = bufferCap
	}
}

// EndTick closes the running phase and stores the sample.
func (p *PerfCollector) EndTick() {
	now := p.now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
}

// RecordFrame marks a rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PhaseTiming is the averaged cost of one phase.
type PhaseTiming struct {
	Avg     time.Duration
	Pct     float64 // share of the average step
	Samples int     // steps in the window that entered the phase
}

// PerfStats aggregates the sample window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	Phase [numPhases]PhaseTiming

	// Steering throughput
	AgentsPerSecond   float64 // agents evaluated per second of steering phase time
	NeighborsPerAgent float64

	NeighborBufferCap     int
	NeighborBufferGrowths int

	FrameDuration time.Duration
	FPS           float64
}

// Timing returns the stats of one phase.
func (s PerfStats) Timing(ph Phase) PhaseTiming {
	if ph >= numPhases {
		return PhaseTiming{}
	}
	return s.Phase[ph]
}

// Stats aggregates the samples currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		NeighborBufferCap:     p.bufferCap,
		NeighborBufferGrowths: p.bufferGrowths,
		FrameDuration:         p.frame,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	var agents, neighbors int
	for i, sample := range p.ring[:p.filled] {
		total += sample.total
		if i == 0 || sample.total < s.MinTickDuration {
			s.MinTickDuration = sample.total
		}
		s.MaxTickDuration = max(s.MaxTickDuration, sample.total)
		for ph := range phaseSum {
			phaseSum[ph] += sample.phases[ph]
			if sample.entered[ph] {
				s.Phase[ph].Samples++
			}
		}
		agents += sample.agents
		neighbors += sample.neighbors
	}

	n := time.Duration(p.filled)
	s.AvgTickDuration = total / n
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	for ph := range s.Phase {
		s.Phase[ph].Avg = phaseSum[ph] / n
		if s.AvgTickDuration > 0 {
			s.Phase[ph].Pct = float64(s.Phase[ph].Avg) / float64(s.AvgTickDuration) * 100
		}
	}

	if steering := phaseSum[PhaseSteering]; steering > 0 {
		s.AgentsPerSecond = float64(agents) / steering.Seconds()
	}
	if agents > 0 {
		s.NeighborsPerAgent = float64(neighbors) / float64(agents)
	}
	return s
}

// LogStats logs the window at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
		slog.Int("agents_per_sec", int(s.AgentsPerSecond)),
		slog.Float64("neighbors_per_agent", s.NeighborsPerAgent),
		slog.Int("neighbor_buffer_cap", s.NeighborBufferCap),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	for _, ph := range Phases {
		if pct := s.Phase[ph].Pct; pct > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is the perf.csv row.
type PerfStatsCSV struct {
	WindowEnd         int32   `csv:"window_end"`
	AvgTickUS         int64   `csv:"avg_tick_us"`
	MaxTickUS         int64   `csv:"max_tick_us"`
	TicksPerSec       float64 `csv:"ticks_per_sec"`
	AgentsPerSec      float64 `csv:"agents_per_sec"`
	NeighborsPerAgent float64 `csv:"neighbors_per_agent"`
	BufferCap         int     `csv:"neighbor_buffer_cap"`
	BufferGrowths     int     `csv:"neighbor_buffer_growths"`
	SnapshotPct       float64 `csv:"snapshot_pct"`
	IndexPct          float64 `csv:"index_pct"`
	SteeringPct       float64 `csv:"steering_pct"`
	CommitPct         float64 `csv:"commit_pct"`
	TelemetryPct      float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for perf.csv.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:         windowEnd,
		AvgTickUS:         s.AvgTickDuration.Microseconds(),
		MaxTickUS:         s.MaxTickDuration.Microseconds(),
		TicksPerSec:       s.TicksPerSecond,
		AgentsPerSec:      s.AgentsPerSecond,
		NeighborsPerAgent: s.NeighborsPerAgent,
		BufferCap:         s.NeighborBufferCap,
		BufferGrowths:     s.NeighborBufferGrowths,
		SnapshotPct:       s.Phase[PhaseSnapshot].Pct,
		IndexPct:          s.Phase[PhaseIndex].Pct,
		SteeringPct:       s.Phase[PhaseSteering].Pct,
		CommitPct:         s.Phase[PhaseCommit].Pct,
		TelemetryPct:      s.Phase[PhaseTelemetry].Pct,
	}
}
