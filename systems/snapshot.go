package systems

import "gonum.org/v1/gonum/spatial/r2"

// AgentState is one agent's position and velocity at the start of a tick.
type AgentState struct {
	ID  uint32
	Pos r2.Vec
	Vel r2.Vec
}

// Snapshot is the per-tick side table of agent state. It is filled before
// evaluation starts and only read while forces are computed.
type Snapshot struct {
	agents []AgentState
	byID   map[uint32]int
}

// NewSnapshot creates an empty snapshot sized for n agents.
func NewSnapshot(n int) *Snapshot {
	return &Snapshot{
		agents: make([]AgentState, 0, n),
		byID:   make(map[uint32]int, n),
	}
}

// Reset empties the snapshot, keeping its storage.
func (s *Snapshot) Reset() {
	s.agents = s.agents[:0]
	clear(s.byID)
}

// Add records an agent. A repeated ID replaces the earlier entry.
func (s *Snapshot) Add(a AgentState) {
	if i, ok := s.byID[a.ID]; ok {
		s.agents[i] = a
		return
	}
	s.byID[a.ID] = len(s.agents)
	s.agents = append(s.agents, a)
}

// Agents returns the recorded agents in insertion order. The slice is owned
// by the snapshot.
func (s *Snapshot) Agents() []AgentState { return s.agents }

// Lookup returns the state recorded for id.
func (s *Snapshot) Lookup(id uint32) (AgentState, bool) {
	i, ok := s.byID[id]
	if !ok {
		return AgentState{}, false
	}
	return s.agents[i], true
}

// Len returns the number of recorded agents.
func (s *Snapshot) Len() int { return len(s.agents) }

// Points appends the indexable positions of every agent to dst.
func (s *Snapshot) Points(dst []Point) []Point {
	for _, a := range s.agents {
		dst = append(dst, Point{ID: a.ID, Pos: a.Pos})
	}
	return dst
}
