package systems

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// agentPoint is a kdtree.Comparable carrying an agent identity.
// Distance is squared Euclidean.
type agentPoint struct {
	ID  uint32
	Pos r2.Vec
}

func (p agentPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(agentPoint)
	if d == 0 {
		return p.Pos.X - q.Pos.X
	}
	return p.Pos.Y - q.Pos.Y
}

func (p agentPoint) Dims() int { return 2 }

func (p agentPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(agentPoint)
	dx := p.Pos.X - q.Pos.X
	dy := p.Pos.Y - q.Pos.Y
	return dx*dx + dy*dy
}

// agentPoints is the kdtree.Interface over a slice of agent points.
type agentPoints []agentPoint

func (p agentPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p agentPoints) Len() int                      { return len(p) }
func (p agentPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p agentPoints) Pivot(d kdtree.Dim) int {
	return agentPlane{Dim: d, agentPoints: p}.Pivot()
}

// agentPlane sorts agent points along one dimension.
type agentPlane struct {
	kdtree.Dim
	agentPoints
}

func (p agentPlane) Less(i, j int) bool {
	return p.agentPoints[i].Compare(p.agentPoints[j], p.Dim) < 0
}
func (p agentPlane) Swap(i, j int) {
	p.agentPoints[i], p.agentPoints[j] = p.agentPoints[j], p.agentPoints[i]
}
func (p agentPlane) Slice(start, end int) kdtree.SortSlicer {
	p.agentPoints = p.agentPoints[start:end]
	return p
}
func (p agentPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// KDTree is an Index backed by a gonum k-d tree.
// Both query kinds return results in ascending distance order.
type KDTree struct {
	points agentPoints
	tree   *kdtree.Tree
}

// NewKDTree creates an empty k-d tree index.
func NewKDTree() *KDTree {
	return &KDTree{}
}

// Rebuild discards the previous tree and builds a new one from points.
func (t *KDTree) Rebuild(points []Point) {
	t.points = t.points[:0]
	for _, p := range points {
		t.points = append(t.points, agentPoint(p))
	}
	if len(t.points) == 0 {
		t.tree = nil
		return
	}
	// kdtree.New reorders the slice it is given.
	t.tree = kdtree.New(slices.Clone(t.points), false)
}

// QueryRadius appends every point within radius of center.
func (t *KDTree) QueryRadius(dst []Neighbor, center r2.Vec, radius float64) []Neighbor {
	if t.tree == nil || radius < 0 {
		return dst
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	t.tree.NearestSet(keep, agentPoint{Pos: center})
	return appendKept(dst, keep.Heap)
}

// QueryNearest appends the k closest points within radius of center.
// Results are always sorted; the sorted flag costs nothing here.
func (t *KDTree) QueryNearest(dst []Neighbor, center r2.Vec, radius float64, k int, sorted bool) []Neighbor {
	if t.tree == nil || k <= 0 || radius < 0 {
		return dst
	}
	// The k nearest overall, cut at the radius, are the k nearest within it.
	keep := kdtree.NewNKeeper(k)
	t.tree.NearestSet(keep, agentPoint{Pos: center})
	return appendWithin(dst, keep.Heap, radius*radius)
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return len(t.points) }

// appendKept converts kept kdtree results into neighbors sorted by distance,
// skipping the keeper sentinel.
func appendKept(dst []Neighbor, kept kdtree.Heap) []Neighbor {
	return appendWithin(dst, kept, math.Inf(1))
}

// appendWithin is appendKept restricted to squared distances <= maxDistSq.
func appendWithin(dst []Neighbor, kept kdtree.Heap, maxDistSq float64) []Neighbor {
	start := len(dst)
	for _, c := range kept {
		if c.Comparable == nil || !(c.Dist <= maxDistSq) {
			continue
		}
		p := c.Comparable.(agentPoint)
		dst = append(dst, Neighbor{ID: p.ID, Dist: math.Sqrt(c.Dist)})
	}
	slices.SortFunc(dst[start:], byDistance)
	return dst
}
