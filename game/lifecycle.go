package game

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/vecmath"
)

// spawnInitialPopulation creates the starting birds at rest, uniformly
// distributed over the spawn square.
func (g *Game) spawnInitialPopulation() {
	hw := g.cfg.Population.HalfWidth
	for i := 0; i < g.cfg.Population.Count; i++ {
		x := (g.rng.Float64()*2 - 1) * hw
		y := (g.rng.Float64()*2 - 1) * hw
		g.SpawnBird(r2.Vec{X: x, Y: y}, r2.Vec{})
	}
}

// SpawnBird adds a bird and returns its ID. IDs released by RemoveBird are
// reused, most recently released first.
func (g *Game) SpawnBird(pos, vel r2.Vec) uint32 {
	var id uint32
	if n := len(g.freeIDs); n > 0 {
		id = g.freeIDs[n-1]
		g.freeIDs = g.freeIDs[:n-1]
	} else {
		id = g.nextID
		g.nextID++
	}

	g.spawnWithID(id, pos, vel)
	return id
}

func (g *Game) spawnWithID(id uint32, pos, vel r2.Vec) {
	p := components.Position(pos)
	v := components.Velocity(vel)
	b := components.Bird{ID: id}
	g.entities[id] = g.birdMap.NewEntity(&p, &v, &b)
}

// RemoveBird removes the bird with the given ID. It reports false if no
// such bird exists. Must not be called during Step.
func (g *Game) RemoveBird(id uint32) bool {
	e, ok := g.entities[id]
	if !ok {
		return false
	}
	g.world.RemoveEntity(e)
	delete(g.entities, id)
	g.freeIDs = append(g.freeIDs, id)
	return true
}

// BirdCount returns the number of live birds.
func (g *Game) BirdCount() int {
	return len(g.entities)
}

// Bird returns the current state of the bird with the given ID.
func (g *Game) Bird(id uint32) (systems.AgentState, bool) {
	e, ok := g.entities[id]
	if !ok {
		return systems.AgentState{}, false
	}
	pos, vel, _ := g.birdMap.Get(e)
	return systems.AgentState{ID: id, Pos: pos.Vec(), Vel: vel.Vec()}, true
}

// Agents returns the state of every bird, sorted by ID.
func (g *Game) Agents() []systems.AgentState {
	agents := make([]systems.AgentState, 0, len(g.entities))
	query := g.birdFilter.Query()
	for query.Next() {
		pos, vel, bird := query.Get()
		agents = append(agents, systems.AgentState{ID: bird.ID, Pos: pos.Vec(), Vel: vel.Vec()})
	}
	slices.SortFunc(agents, func(a, b systems.AgentState) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return agents
}

// SpawnPlayer creates the player entity at pos, replacing any existing one.
func (g *Game) SpawnPlayer(pos r2.Vec) {
	g.RemovePlayer()
	p := components.Position(pos)
	pl := components.Player{}
	g.player = g.playerMap.NewEntity(&p, &pl)
	g.hasPlayer = true
}

// RemovePlayer removes the player entity. Step returns ErrNoPlayer until
// SpawnPlayer is called again.
func (g *Game) RemovePlayer() {
	if !g.hasPlayer {
		return
	}
	if g.world.Alive(g.player) {
		g.world.RemoveEntity(g.player)
	}
	g.hasPlayer = false
}

// PlayerPosition returns the player's position, or false if there is no player.
func (g *Game) PlayerPosition() (r2.Vec, bool) {
	if !g.hasPlayer || !g.world.Alive(g.player) {
		return r2.Vec{}, false
	}
	pos, _ := g.playerMap.Get(g.player)
	return pos.Vec(), true
}

// PlayerVelocity returns the player's last observed displacement.
func (g *Game) PlayerVelocity() r2.Vec {
	if !g.hasPlayer || !g.world.Alive(g.player) {
		return r2.Vec{}
	}
	_, pl := g.playerMap.Get(g.player)
	return pl.Velocity
}

// TrackPlayer moves the player to pos and records the displacement as its
// velocity. When ok is false (cursor outside the window) the player keeps
// its last known position and its velocity drops to zero.
func (g *Game) TrackPlayer(pos r2.Vec, ok bool) {
	if !g.hasPlayer || !g.world.Alive(g.player) {
		return
	}
	p, pl := g.playerMap.Get(g.player)
	if !ok || !vecmath.IsFinite(pos) {
		pl.Velocity = r2.Vec{}
		return
	}
	pl.Velocity = r2.Sub(pos, p.Vec())
	p.Set(pos)
}
