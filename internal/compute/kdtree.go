package compute

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// maxLeaf is the number of bodies a leaf holds before it is split.
const maxLeaf = 8

// kdNode covers the bodies idx[start:end]. Internal nodes keep the total
// mass and the mass-weighted centre of everything below them.
type kdNode struct {
	start, end  int
	mass        float64
	cm          r2.Vec
	lo, hi      r2.Vec
	size        float64
	left, right int
}

func (n *kdNode) leaf() bool { return n.left < 0 }

func (n *kdNode) contains(p r2.Vec) bool {
	return p.X >= n.lo.X && p.X <= n.hi.X && p.Y >= n.lo.Y && p.Y <= n.hi.Y
}

// kdTree is rebuilt every evaluation. Its buffers are reused between calls.
type kdTree struct {
	nodes []kdNode
	idx   []int
}

func (t *kdTree) build(pos []r2.Vec, mass []float64, alive []bool) int {
	t.nodes = t.nodes[:0]
	t.idx = t.idx[:0]
	for i := range mass {
		if alive[i] {
			t.idx = append(t.idx, i)
		}
	}
	if len(t.idx) > 0 {
		t.split(pos, mass, 0, len(t.idx))
	}
	return len(t.idx)
}

// split builds the node for idx[start:end] and returns its index. Nodes
// whose bodies all share one point stay leaves whatever their size.
func (t *kdTree) split(pos []r2.Vec, mass []float64, start, end int) int {
	first := pos[t.idx[start]]
	n := kdNode{start: start, end: end, lo: first, hi: first, left: -1, right: -1}
	for _, i := range t.idx[start:end] {
		p := pos[i]
		n.mass += mass[i]
		n.cm = r2.Add(n.cm, r2.Scale(mass[i], p))
		n.lo = r2.Vec{X: math.Min(n.lo.X, p.X), Y: math.Min(n.lo.Y, p.Y)}
		n.hi = r2.Vec{X: math.Max(n.hi.X, p.X), Y: math.Max(n.hi.Y, p.Y)}
	}
	n.cm = r2.Scale(1/n.mass, n.cm)
	dx, dy := n.hi.X-n.lo.X, n.hi.Y-n.lo.Y
	n.size = math.Max(dx, dy)

	id := len(t.nodes)
	t.nodes = append(t.nodes, n)
	if end-start <= maxLeaf || n.size == 0 {
		return id
	}

	axis := func(p r2.Vec) float64 { return p.Y }
	if dx >= dy {
		axis = func(p r2.Vec) float64 { return p.X }
	}
	slices.SortFunc(t.idx[start:end], func(a, b int) int {
		return cmp.Compare(axis(pos[a]), axis(pos[b]))
	})

	mid := start + (end-start)/2
	left := t.split(pos, mass, start, mid)
	right := t.split(pos, mass, mid, end)
	t.nodes[id].left, t.nodes[id].right = left, right
	return id
}

// accel walks the tree for body i. A node is taken as a point mass when it
// does not contain the body and its size is below theta times the distance
// to its centre of mass; theta of zero always opens down to the leaves.
func (t *kdTree) accel(id, i int, pos []r2.Vec, mass []float64, g, eps2, theta float64) r2.Vec {
	n := &t.nodes[id]
	p := pos[i]

	if n.leaf() {
		var a r2.Vec
		for _, j := range t.idx[n.start:n.end] {
			if j != i {
				a = r2.Add(a, pull(r2.Sub(pos[j], p), mass[j], g, eps2))
			}
		}
		return a
	}

	d := r2.Sub(n.cm, p)
	if !n.contains(p) && n.size < theta*r2.Norm(d) {
		return pull(d, n.mass, g, eps2)
	}
	return r2.Add(
		t.accel(n.left, i, pos, mass, g, eps2, theta),
		t.accel(n.right, i, pos, mass, g, eps2, theta),
	)
}

// pull is the softened acceleration towards mass m at offset d.
func pull(d r2.Vec, m, g, eps2 float64) r2.Vec {
	inv := 1 / math.Sqrt(r2.Norm2(d)+eps2)
	return r2.Scale(g*m*inv*inv*inv, d)
}
