package components

import "gonum.org/v1/gonum/spatial/r2"

// Bird tags a flocking agent and carries its stable identity.
// IDs are unique among live birds and only reused after removal.
type Bird struct {
	ID uint32
}

// Player tags the single player entity.
// Velocity is the observed position delta since the previous tick; the
// steering code never reads it.
type Player struct {
	Velocity r2.Vec
}
