package systems

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func backends() []struct {
	name string
	new  func() Index
} {
	return []struct {
		name string
		new  func() Index
	}{
		{"kdtree", func() Index { return NewKDTree() }},
		{"grid_1", func() Index { return NewSpatialGrid(1) }},
		{"grid_5", func() Index { return NewSpatialGrid(5) }},
		{"grid_50", func() Index { return NewSpatialGrid(50) }},
	}
}

func randomPoints(rng *rand.Rand, n int, half float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{
			ID:  uint32(i),
			Pos: r2.Vec{X: (rng.Float64()*2 - 1) * half, Y: (rng.Float64()*2 - 1) * half},
		}
	}
	return pts
}

func dist(a, b r2.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// bruteRadius returns the sorted IDs of points within radius of center.
func bruteRadius(pts []Point, center r2.Vec, radius float64) []uint32 {
	var ids []uint32
	for _, p := range pts {
		if dist(p.Pos, center) <= radius {
			ids = append(ids, p.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

func ids(ns []Neighbor) []uint32 {
	var out []uint32
	for _, n := range ns {
		out = append(out, n.ID)
	}
	slices.Sort(out)
	return out
}

func TestNewIndex(t *testing.T) {
	idx, err := NewIndex("kdtree", 0)
	require.NoError(t, err)
	assert.IsType(t, &KDTree{}, idx)

	idx, err = NewIndex("grid", 5)
	require.NoError(t, err)
	assert.IsType(t, &SpatialGrid{}, idx)

	_, err = NewIndex("grid", 0)
	assert.Error(t, err)

	_, err = NewIndex("octree", 1)
	assert.Error(t, err)
}

func TestIndexRadiusMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(37))
	pts := randomPoints(rng, 500, 50)

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)
			require.Equal(t, len(pts), idx.Len())

			for _, radius := range []float64{0.5, 3, 5, 12, 200} {
				for q := 0; q < 40; q++ {
					center := pts[q*7%len(pts)].Pos
					if q%2 == 1 {
						center = r2.Vec{X: rng.Float64()*120 - 60, Y: rng.Float64()*120 - 60}
					}

					got := idx.QueryRadius(nil, center, radius)
					assert.Equal(t, bruteRadius(pts, center, radius), ids(got),
						"radius %v around %v", radius, center)

					for _, n := range got {
						assert.InDelta(t, dist(pts[n.ID].Pos, center), n.Dist, 1e-9)
					}
				}
			}
		})
	}
}

func TestIndexNearestSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pts := randomPoints(rng, 400, 30)
	const k = 10
	const radius = 5.0

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)

			for q := 0; q < 50; q++ {
				center := pts[q].Pos
				got := idx.QueryNearest(nil, center, radius, k, true)

				var want []float64
				for _, p := range pts {
					if d := dist(p.Pos, center); d <= radius {
						want = append(want, d)
					}
				}
				slices.Sort(want)
				if len(want) > k {
					want = want[:k]
				}

				require.Len(t, got, len(want))
				for i, n := range got {
					assert.LessOrEqual(t, n.Dist, radius)
					assert.InDelta(t, want[i], n.Dist, 1e-9)
					if i > 0 {
						assert.LessOrEqual(t, got[i-1].Dist, n.Dist, "results not ascending")
					}
				}
			}
		})
	}
}

func TestIndexNearestUnsorted(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pts := randomPoints(rng, 300, 20)
	const radius = 6.0

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)

			for _, k := range []int{1, 4, 10, 1000} {
				center := pts[k%len(pts)].Pos
				got := idx.QueryNearest(nil, center, radius, k, false)
				within := bruteRadius(pts, center, radius)

				assert.Len(t, got, min(k, len(within)))
				seen := make(map[uint32]bool)
				for _, n := range got {
					assert.LessOrEqual(t, n.Dist, radius)
					assert.False(t, seen[n.ID], "duplicate id %d", n.ID)
					seen[n.ID] = true
				}
			}
		})
	}
}

func TestIndexDuplicatePoints(t *testing.T) {
	pts := []Point{
		{ID: 1, Pos: r2.Vec{X: 2, Y: 2}},
		{ID: 2, Pos: r2.Vec{X: 2, Y: 2}},
		{ID: 3, Pos: r2.Vec{X: 2, Y: 2}},
		{ID: 4, Pos: r2.Vec{X: 9, Y: 9}},
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)

			got := idx.QueryRadius(nil, r2.Vec{X: 2, Y: 2}, 0.1)
			assert.Equal(t, []uint32{1, 2, 3}, ids(got))
			for _, n := range got {
				assert.Zero(t, n.Dist)
			}

			got = idx.QueryNearest(nil, r2.Vec{X: 2, Y: 2}, 0.1, 2, true)
			assert.Len(t, got, 2)
		})
	}
}

func TestIndexEmpty(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(nil)

			assert.Zero(t, idx.Len())
			assert.Empty(t, idx.QueryRadius(nil, r2.Vec{}, 100))
			assert.Empty(t, idx.QueryNearest(nil, r2.Vec{}, 100, 10, true))
			assert.Empty(t, idx.QueryNearest(nil, r2.Vec{}, 100, 10, false))
		})
	}
}

func TestIndexRebuildDiscards(t *testing.T) {
	first := []Point{{ID: 1, Pos: r2.Vec{X: 0, Y: 0}}, {ID: 2, Pos: r2.Vec{X: 1, Y: 0}}}
	second := []Point{{ID: 7, Pos: r2.Vec{X: 40, Y: 40}}}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(first)
			idx.Rebuild(second)

			assert.Equal(t, 1, idx.Len())
			assert.Empty(t, idx.QueryRadius(nil, r2.Vec{}, 5))
			assert.Equal(t, []uint32{7}, ids(idx.QueryRadius(nil, r2.Vec{X: 40, Y: 40}, 1)))
		})
	}
}

func TestIndexAppendsToDst(t *testing.T) {
	pts := []Point{{ID: 3, Pos: r2.Vec{X: 1, Y: 1}}}
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)

			dst := []Neighbor{{ID: 99, Dist: 42}}
			dst = idx.QueryRadius(dst, r2.Vec{}, 5)
			require.Len(t, dst, 2)
			assert.Equal(t, uint32(99), dst[0].ID)
			assert.Equal(t, uint32(3), dst[1].ID)
		})
	}
}

func TestIndexRadiusBoundaryInclusive(t *testing.T) {
	// Points exactly on a radius-5 circle, plus one just outside.
	pts := []Point{
		{ID: 0, Pos: r2.Vec{X: 0, Y: 0}},
		{ID: 1, Pos: r2.Vec{X: 5, Y: 0}},
		{ID: 2, Pos: r2.Vec{X: 0, Y: -5}},
		{ID: 3, Pos: r2.Vec{X: 3, Y: 4}},
		{ID: 4, Pos: r2.Vec{X: 5.001, Y: 0}},
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)

			assert.Equal(t, []uint32{0, 1, 2, 3}, ids(idx.QueryRadius(nil, r2.Vec{}, 5)))
			assert.Equal(t, []uint32{0, 1, 2, 3}, ids(idx.QueryNearest(nil, r2.Vec{}, 5, 10, true)))
			assert.Len(t, idx.QueryNearest(nil, r2.Vec{}, 5, 10, false), 4)

			got := idx.QueryNearest(nil, r2.Vec{}, 5, 2, true)
			require.Len(t, got, 2)
			assert.Equal(t, uint32(0), got[0].ID)
			assert.Equal(t, 5.0, got[1].Dist)
		})
	}
}

func TestIndexNearestRadiusCutsBeforeK(t *testing.T) {
	// Far points must not fill the k slots when fewer lie within the radius.
	pts := []Point{
		{ID: 0, Pos: r2.Vec{X: 1, Y: 0}},
		{ID: 1, Pos: r2.Vec{X: 20, Y: 0}},
		{ID: 2, Pos: r2.Vec{X: 30, Y: 0}},
	}
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			idx := b.new()
			idx.Rebuild(pts)
			got := idx.QueryNearest(nil, r2.Vec{}, 5, 3, true)
			assert.Equal(t, []uint32{0}, ids(got))
		})
	}
}

func TestSpatialGridDropsVacatedCells(t *testing.T) {
	g := NewSpatialGrid(1)
	g.Rebuild([]Point{{ID: 1, Pos: r2.Vec{X: 0.5, Y: 0.5}}, {ID: 2, Pos: r2.Vec{X: 10.5, Y: 0.5}}})
	assert.Len(t, g.cells, 2)

	g.Rebuild([]Point{{ID: 1, Pos: r2.Vec{X: 20.5, Y: 0.5}}})
	assert.Len(t, g.cells, 1)
	assert.Equal(t, []uint32{1}, ids(g.QueryRadius(nil, r2.Vec{X: 20.5, Y: 0.5}, 0.1)))
}
