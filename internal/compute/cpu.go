package compute

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

// parallelThreshold is the body count above which DirectEvaluator splits
// rows across workers.
const parallelThreshold = 64

// DirectEvaluator is the exact O(n²) pairwise sum.
type DirectEvaluator struct {
	workers int
}

func NewDirect() *DirectEvaluator {
	return &DirectEvaluator{
		workers: runtime.NumCPU(),
	}
}

// WithWorkers caps the number of goroutines used above the parallel threshold.
func (d *DirectEvaluator) WithWorkers(n int) *DirectEvaluator {
	if n < 1 {
		n = 1
	}
	d.workers = n
	return d
}

func (d *DirectEvaluator) Name() string { return Direct }

func (d *DirectEvaluator) Accelerations(pos []r2.Vec, mass []float64, alive []bool, g, eps float64, acc []r2.Vec) error {
	n := len(mass)
	if n < parallelThreshold || d.workers <= 1 {
		d.serial(pos, mass, alive, g, eps, acc)
		return nil
	}
	return d.parallel(pos, mass, alive, g, eps, acc)
}

// serial visits each pair once and applies the equal and opposite pull.
func (d *DirectEvaluator) serial(pos []r2.Vec, mass []float64, alive []bool, g, eps float64, acc []r2.Vec) {
	n := len(mass)
	eps2 := eps * eps

	for i := 0; i < n; i++ {
		if !alive[i] {
			continue
		}
		xi, yi := pos[i].X, pos[i].Y

		for j := i + 1; j < n; j++ {
			if !alive[j] {
				continue
			}
			rx := pos[j].X - xi
			ry := pos[j].Y - yi
			d2 := rx*rx + ry*ry + eps2

			rInv := 1.0 / math.Sqrt(d2)
			r3Inv := rInv * rInv * rInv

			fij := g * mass[j] * r3Inv
			acc[i].X += fij * rx
			acc[i].Y += fij * ry

			fji := g * mass[i] * r3Inv
			acc[j].X -= fji * rx
			acc[j].Y -= fji * ry
		}
	}
}

// parallel gives each worker a disjoint block of rows, so no reduction is
// needed; every pair is evaluated twice.
func (d *DirectEvaluator) parallel(pos []r2.Vec, mass []float64, alive []bool, g, eps float64, acc []r2.Vec) error {
	n := len(mass)
	eps2 := eps * eps
	chunkSize := (n + d.workers - 1) / d.workers

	var eg errgroup.Group
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)

		eg.Go(func() error {
			for i := start; i < end; i++ {
				if !alive[i] {
					continue
				}
				xi, yi := pos[i].X, pos[i].Y
				var ax, ay float64

				for j := 0; j < n; j++ {
					if i == j || !alive[j] {
						continue
					}
					rx := pos[j].X - xi
					ry := pos[j].Y - yi
					d2 := rx*rx + ry*ry + eps2

					rInv := 1.0 / math.Sqrt(d2)
					f := g * mass[j] * rInv * rInv * rInv
					ax += f * rx
					ay += f * ry
				}
				acc[i] = r2.Vec{X: ax, Y: ay}
			}
			return nil
		})
	}
	return eg.Wait()
}
