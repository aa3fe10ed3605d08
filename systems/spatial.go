package systems

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// gridKey addresses one cell of the unbounded grid.
type gridKey struct {
	X, Y int
}

// SpatialGrid is an Index built from uniform cells hashed by coordinate, so
// the plane is unbounded and agents can wander arbitrarily far from origin.
// Queries do not mutate the grid and may run concurrently.
type SpatialGrid struct {
	cellSize float64
	points   []Point
	cells    map[gridKey][]int32 // indices into points
}

// NewSpatialGrid creates an empty grid with the given cell size.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[gridKey][]int32),
	}
}

// Rebuild clears the grid and inserts all points.
func (g *SpatialGrid) Rebuild(points []Point) {
	// Keep backing arrays so cells that stay occupied do not reallocate.
	for k, c := range g.cells {
		g.cells[k] = c[:0]
	}
	g.points = append(g.points[:0], points...)
	for i, p := range g.points {
		k := g.key(p.Pos)
		g.cells[k] = append(g.cells[k], int32(i))
	}
	// len(g.cells) counts occupied cells only; query relies on it.
	for k, c := range g.cells {
		if len(c) == 0 {
			delete(g.cells, k)
		}
	}
}

// QueryRadius appends every point within radius of center.
func (g *SpatialGrid) QueryRadius(dst []Neighbor, center r2.Vec, radius float64) []Neighbor {
	return g.query(dst, center, radius, -1)
}

// QueryNearest appends at most k points within radius. Unsorted queries stop
// at the first k hits in cell order; sorted queries gather every hit and keep
// the k closest.
func (g *SpatialGrid) QueryNearest(dst []Neighbor, center r2.Vec, radius float64, k int, sorted bool) []Neighbor {
	if k <= 0 {
		return dst
	}
	if !sorted {
		return g.query(dst, center, radius, k)
	}
	start := len(dst)
	dst = g.query(dst, center, radius, -1)
	slices.SortFunc(dst[start:], byDistance)
	if len(dst)-start > k {
		dst = dst[:start+k]
	}
	return dst
}

// Len returns the number of indexed points.
func (g *SpatialGrid) Len() int { return len(g.points) }

// query appends points within radius of center, stopping after limit hits
// when limit >= 0.
func (g *SpatialGrid) query(dst []Neighbor, center r2.Vec, radius float64, limit int) []Neighbor {
	if len(g.points) == 0 || radius < 0 || math.IsNaN(radius) {
		return dst
	}

	x0 := math.Floor((center.X - radius) / g.cellSize)
	x1 := math.Floor((center.X + radius) / g.cellSize)
	y0 := math.Floor((center.Y - radius) / g.cellSize)
	y1 := math.Floor((center.Y + radius) / g.cellSize)

	// A query covering more cells than are occupied is cheaper as a scan.
	span := (x1 - x0 + 1) * (y1 - y0 + 1)
	if math.IsNaN(span) || span > float64(len(g.cells)) {
		return g.scan(dst, center, radius, limit)
	}
	lo := gridKey{int(x0), int(y0)}
	hi := gridKey{int(x1), int(y1)}

	radiusSq := radius * radius
	found := 0
	for cy := lo.Y; cy <= hi.Y; cy++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			for _, i := range g.cells[gridKey{cx, cy}] {
				p := g.points[i]
				dx := p.Pos.X - center.X
				dy := p.Pos.Y - center.Y
				distSq := dx*dx + dy*dy
				if !(distSq <= radiusSq) {
					continue
				}
				dst = append(dst, Neighbor{ID: p.ID, Dist: math.Sqrt(distSq)})
				found++
				if limit >= 0 && found >= limit {
					return dst
				}
			}
		}
	}
	return dst
}

// scan checks every point in insertion order.
func (g *SpatialGrid) scan(dst []Neighbor, center r2.Vec, radius float64, limit int) []Neighbor {
	radiusSq := radius * radius
	found := 0
	for _, p := range g.points {
		dx := p.Pos.X - center.X
		dy := p.Pos.Y - center.Y
		distSq := dx*dx + dy*dy
		if !(distSq <= radiusSq) {
			continue
		}
		dst = append(dst, Neighbor{ID: p.ID, Dist: math.Sqrt(distSq)})
		found++
		if limit >= 0 && found >= limit {
			break
		}
	}
	return dst
}

// key returns the cell containing pos.
func (g *SpatialGrid) key(pos r2.Vec) gridKey {
	return gridKey{
		X: int(math.Floor(pos.X / g.cellSize)),
		Y: int(math.Floor(pos.Y / g.cellSize)),
	}
}
