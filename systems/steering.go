package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/vecmath"
)

// Params holds the steering and integration constants.
type Params struct {
	PlayerPolicy  string
	NeighborQuery string
	Cohesion      bool
	Centering     bool
	SortNeighbors bool

	QueryRadius float64
	K           int
	MinDistance float64

	FollowFactor  float64
	FollowRange   float64
	FollowFalloff float64

	AvoidFactor      float64
	MinAvoidDistance float64
	MaxAvoidDistance float64

	CenterFactor      float64
	MinCenterDistance float64
	MaxCenterDistance float64

	SeparationFactor float64
	AlignmentFactor  float64
	CohesionFactor   float64

	MaxSteeringForce float64
	MinVelocity      float64
	MaxVelocity      float64
	SpeedScale       float64
}

// ParamsFromConfig collects the steering parameters from cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	s := cfg.Steering
	return Params{
		PlayerPolicy:      s.PlayerPolicy,
		NeighborQuery:     s.NeighborQuery,
		Cohesion:          s.Cohesion,
		Centering:         s.Centering,
		SortNeighbors:     s.SortNeighbors,
		QueryRadius:       s.QueryRadius,
		K:                 s.K,
		MinDistance:       s.MinDistance,
		FollowFactor:      s.FollowFactor,
		FollowRange:       s.FollowRange,
		FollowFalloff:     s.FollowFalloff,
		AvoidFactor:       s.AvoidFactor,
		MinAvoidDistance:  s.MinAvoidDistance,
		MaxAvoidDistance:  s.MaxAvoidDistance,
		CenterFactor:      s.CenterFactor,
		MinCenterDistance: s.MinCenterDistance,
		MaxCenterDistance: s.MaxCenterDistance,
		SeparationFactor:  s.SeparationFactor,
		AlignmentFactor:   s.AlignmentFactor,
		CohesionFactor:    s.CohesionFactor,
		MaxSteeringForce:  cfg.Integration.MaxSteeringForce,
		MinVelocity:       cfg.Integration.MinVelocity,
		MaxVelocity:       cfg.Integration.MaxVelocity,
		SpeedScale:        cfg.Physics.SpeedScale,
	}
}

// Forces breaks down the steering force computed for one agent.
type Forces struct {
	Player     r2.Vec // follow or avoid term
	Center     r2.Vec
	Separation r2.Vec
	Alignment  r2.Vec
	Cohesion   r2.Vec

	Total     r2.Vec  // clamped sum, applied to velocity
	Raw       float64 // magnitude of the sum before clamping
	Neighbors int
}

// Clamped reports whether the sum exceeded the force limit.
func (f Forces) Clamped() bool {
	return vecmath.Length(f.Total) < f.Raw
}

// Steering evaluates the per-agent steering force.
type Steering struct {
	Params Params
}

// NewSteering creates a steering engine with the given parameters.
func NewSteering(p Params) *Steering {
	return &Steering{Params: p}
}

// Neighbors appends the neighbors of self found in idx, excluding self.
func (s *Steering) Neighbors(dst []Neighbor, idx Index, self AgentState) []Neighbor {
	p := &s.Params
	start := len(dst)
	switch p.NeighborQuery {
	case config.QueryKNearest:
		// Ask for one extra so dropping self still leaves k.
		dst = idx.QueryNearest(dst, self.Pos, p.QueryRadius, p.K+1, p.SortNeighbors)
	default:
		dst = idx.QueryRadius(dst, self.Pos, p.QueryRadius)
	}

	n := start
	for _, nb := range dst[start:] {
		if nb.ID == self.ID {
			continue
		}
		dst[n] = nb
		n++
	}
	dst = dst[:n]
	if p.NeighborQuery == config.QueryKNearest && n-start > p.K {
		dst = dst[:start+p.K]
	}
	return dst
}

// Compute combines the steering terms for self. Neighbor positions and
// velocities are read from snap; neighbors missing from it are ignored.
func (s *Steering) Compute(self AgentState, player r2.Vec, neighbors []Neighbor, snap *Snapshot) Forces {
	p := &s.Params
	var f Forces

	f.Player = s.playerForce(self.Pos, player)
	if p.Centering {
		f.Center = s.centerForce(self.Pos)
	}

	var sum r2.Vec
	for _, nb := range neighbors {
		other, ok := snap.Lookup(nb.ID)
		if !ok {
			continue
		}
		f.Neighbors++
		d := math.Max(nb.Dist, p.MinDistance)

		away := vecmath.NormalizeOrZero(r2.Sub(self.Pos, other.Pos))
		f.Separation = r2.Add(f.Separation, r2.Scale(p.SeparationFactor/d, away))

		heading := vecmath.NormalizeOrZero(other.Vel)
		f.Alignment = r2.Add(f.Alignment, r2.Scale(p.AlignmentFactor/d, heading))

		sum = r2.Add(sum, other.Pos)
	}
	if p.Cohesion && f.Neighbors > 0 {
		mean := r2.Scale(1/float64(f.Neighbors), sum)
		f.Cohesion = r2.Scale(p.CohesionFactor, vecmath.NormalizeOrZero(r2.Sub(mean, self.Pos)))
	}

	total := r2.Add(f.Player, f.Center)
	total = r2.Add(total, f.Separation)
	total = r2.Add(total, f.Alignment)
	total = r2.Add(total, f.Cohesion)
	f.Raw = vecmath.Length(total)
	f.Total = vecmath.ClampLengthMax(total, p.MaxSteeringForce)
	return f
}

// Evaluate queries the neighbors of self and computes its steering force.
// buf is scratch space; the grown buffer is returned for reuse.
func (s *Steering) Evaluate(buf []Neighbor, idx Index, snap *Snapshot, self AgentState, player r2.Vec) (Forces, []Neighbor) {
	buf = s.Neighbors(buf[:0], idx, self)
	return s.Compute(self, player, buf, snap), buf
}

// playerForce is the follow or avoid term.
func (s *Steering) playerForce(pos, player r2.Vec) r2.Vec {
	p := &s.Params
	toPlayer := r2.Sub(player, pos)
	d := vecmath.Length(toPlayer)
	dir := vecmath.NormalizeOrZero(toPlayer)

	if p.PlayerPolicy == config.PolicyFollow {
		// Peaks at follow_falloff and decays both closer and further out.
		c := vecmath.Clamp(d, 0, p.FollowRange)
		mag := c * math.Exp(-c/p.FollowFalloff) * p.FollowFactor
		return r2.Scale(mag, dir)
	}

	dc := vecmath.Clamp(d, p.MinAvoidDistance, p.MaxAvoidDistance)
	strength := vecmath.Strength(p.MinAvoidDistance, p.MaxAvoidDistance, dc)
	return r2.Scale(-p.AvoidFactor*(1-strength), dir)
}

// centerForce pulls agents back toward the origin once they stray.
func (s *Steering) centerForce(pos r2.Vec) r2.Vec {
	p := &s.Params
	strength := vecmath.Strength(p.MinCenterDistance, p.MaxCenterDistance, vecmath.Length(pos))
	return r2.Scale(-p.CenterFactor*strength, vecmath.NormalizeOrZero(pos))
}
