package game

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/vecmath"
)

// agentSnapshot pairs a bird's start-of-tick state with its entity.
type agentSnapshot struct {
	Entity ecs.Entity
	State  systems.AgentState
}

// intent captures the evaluated outputs to apply after the parallel phase.
type intent struct {
	Forces systems.Forces
	Pos    r2.Vec
	Vel    r2.Vec
	Fault  bool
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Neighbors []systems.Neighbor
}

// workChunk represents a range of agents for a worker to process.
type workChunk struct {
	start, end int
	player     r2.Vec
	dt         float64
}

// parallelState holds resources for parallel steering evaluation.
type parallelState struct {
	snapshots  []agentSnapshot
	intents    []intent
	scratches  []workerScratch
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers int) *parallelState {
	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].Neighbors = make([]systems.Neighbor, 0, 64)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
		snapshots:  make([]agentSnapshot, 0, 512),
		intents:    make([]intent, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(g *Game) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(g, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(g *Game, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			g.computeChunk(chunk.start, chunk.end, scratch, chunk.player, chunk.dt)
			p.doneChan <- struct{}{}
		}
	}
}

// evaluate fills one intent per snapshot entry, using the worker pool for
// large populations.
func (g *Game) evaluate(player r2.Vec, dt float64) {
	n := len(g.parallel.snapshots)
	if cap(g.parallel.intents) < n {
		g.parallel.intents = make([]intent, n)
	}
	g.parallel.intents = g.parallel.intents[:n]
	if n == 0 {
		return
	}

	if !g.cfg.Parallel.Enabled || n < g.cfg.Parallel.Threshold || g.parallel.numWorkers < 2 {
		g.computeChunk(0, n, &g.parallel.scratches[0], player, dt)
		return
	}
	g.computeParallel(n, player, dt)
}

// computeParallel dispatches work to the worker pool.
func (g *Game) computeParallel(n int, player r2.Vec, dt float64) {
	// Ensure workers are running
	if !g.parallel.running {
		g.parallel.startWorkers(g)
	}

	numWorkers := g.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}

		g.parallel.workChan <- workChunk{start: start, end: end, player: player, dt: dt}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-g.parallel.doneChan
	}
}

// computeChunk evaluates a range of agents. It reads only the snapshot and
// index and writes only intents[i0:i1].
func (g *Game) computeChunk(i0, i1 int, scratch *workerScratch, player r2.Vec, dt float64) {
	params := &g.steering.Params

	for i := i0; i < i1; i++ {
		self := g.parallel.snapshots[i].State
		in := &g.parallel.intents[i]

		var forces systems.Forces
		forces, scratch.Neighbors = g.steering.Evaluate(scratch.Neighbors, g.index, g.snapshot, self, player)
		pos, vel := systems.Integrate(self.Pos, self.Vel, forces.Total, dt, params)

		in.Forces = forces
		in.Pos = pos
		in.Vel = vel
		in.Fault = !vecmath.IsFinite(forces.Total) || !vecmath.IsFinite(vel) || !vecmath.IsFinite(pos)
	}
}

// workload sums the neighbors visited by the last evaluation and the
// capacity the workers' neighbor buffers have grown to.
func (p *parallelState) workload() (neighbors, bufferCap int) {
	for i := range p.intents {
		neighbors += p.intents[i].Forces.Neighbors
	}
	for i := range p.scratches {
		bufferCap += cap(p.scratches[i].Neighbors)
	}
	return neighbors, bufferCap
}
