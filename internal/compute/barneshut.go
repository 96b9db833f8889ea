package compute

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

// BarnesHutEvaluator approximates the pairwise sum with a kd-tree. Nodes
// whose size over distance is below Theta are treated as a point mass at
// their centre of mass. Theta of zero walks every leaf and reproduces the
// direct sum.
type BarnesHutEvaluator struct {
	Theta float64

	tree    kdTree
	workers int
}

func NewBarnesHut(theta float64) *BarnesHutEvaluator {
	if theta < 0 || math.IsNaN(theta) {
		theta = DefaultTheta
	}
	return &BarnesHutEvaluator{
		Theta:   theta,
		workers: runtime.NumCPU(),
	}
}

func (b *BarnesHutEvaluator) Name() string { return BarnesHut }

func (b *BarnesHutEvaluator) Accelerations(pos []r2.Vec, mass []float64, alive []bool, g, eps float64, acc []r2.Vec) error {
	if b.tree.build(pos, mass, alive) < 2 {
		return nil
	}
	eps2 := eps * eps

	walk := func(ids []int) {
		for _, i := range ids {
			acc[i] = b.tree.accel(0, i, pos, mass, g, eps2, b.Theta)
		}
	}

	ids := b.tree.idx
	if len(ids) < parallelThreshold || b.workers <= 1 {
		walk(ids)
		return nil
	}

	chunkSize := (len(ids) + b.workers - 1) / b.workers
	var eg errgroup.Group
	for start := 0; start < len(ids); start += chunkSize {
		chunk := ids[start:min(start+chunkSize, len(ids))]
		eg.Go(func() error {
			walk(chunk)
			return nil
		})
	}
	return eg.Wait()
}
