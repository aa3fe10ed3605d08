// Package systems contains the per-tick flock systems: the spatial index, the
// agent snapshot, the steering engine and the integrator.
package systems

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
)

// Point is an agent position keyed by identity.
type Point struct {
	ID  uint32
	Pos r2.Vec
}

// Neighbor is a query result. Dist is the Euclidean distance from the query
// center.
type Neighbor struct {
	ID   uint32
	Dist float64
}

// Index is a 2D point index rebuilt from scratch every tick.
//
// Query methods append to dst and return the extended slice so callers can
// reuse a buffer across agents. The radius cutoff is inclusive.
type Index interface {
	// Rebuild discards prior content and indexes points.
	Rebuild(points []Point)
	// QueryRadius appends every point within radius of center, in no
	// particular order.
	QueryRadius(dst []Neighbor, center r2.Vec, radius float64) []Neighbor
	// QueryNearest appends at most k points within radius of center. When
	// sorted is set the results are the k closest in ascending distance;
	// otherwise any k points within radius may be returned.
	QueryNearest(dst []Neighbor, center r2.Vec, radius float64, k int, sorted bool) []Neighbor
	// Len returns the number of indexed points.
	Len() int
}

// NewIndex creates the index backend named by kind.
func NewIndex(kind string, cellSize float64) (Index, error) {
	switch kind {
	case config.IndexKDTree:
		return NewKDTree(), nil
	case config.IndexGrid:
		if cellSize <= 0 {
			return nil, fmt.Errorf("grid cell size must be positive, got %v", cellSize)
		}
		return NewSpatialGrid(cellSize), nil
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
}

// byDistance orders neighbors by distance, then by ID so ties are stable
// across runs.
func byDistance(a, b Neighbor) int {
	switch {
	case a.Dist < b.Dist:
		return -1
	case a.Dist > b.Dist:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
