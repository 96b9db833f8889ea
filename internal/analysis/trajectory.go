package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
)

var trailGlyphs = []rune{'•', '∘', '×', '+', '◦', '·'}

// Trajectories collects the path of every body across samples, keyed by
// handle. Bodies missing from a sample simply have a shorter path.
func Trajectories(samples []*snapshot.Snapshot) map[dynamo.Handle][]r2.Vec {
	paths := make(map[dynamo.Handle][]r2.Vec)
	for _, s := range samples {
		for _, b := range s.Bodies {
			paths[b.ID] = append(paths[b.ID], b.Pos)
		}
	}
	return paths
}

// TrajectoryASCII plots every body path on a width×height character grid.
// Bodies cycle through a small set of glyphs; the final position of each
// body is drawn as '@'.
func TrajectoryASCII(samples []*snapshot.Snapshot, width, height int) string {
	if len(samples) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range samples {
		for _, b := range s.Bodies {
			minX, maxX = math.Min(minX, b.Pos.X), math.Max(maxX, b.Pos.X)
			minY, maxY = math.Min(minY, b.Pos.Y), math.Max(maxY, b.Pos.Y)
		}
	}
	if math.IsInf(minX, 0) {
		return ""
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	cell := func(p r2.Vec) (int, int, bool) {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		return row, col, row >= 0 && row < height && col >= 0 && col < width
	}

	// Draw axes if they cross the visible area
	if row, _, ok := cell(r2.Vec{X: minX, Y: 0}); ok {
		for col := range width {
			canvas[row][col] = '─'
		}
	}
	if _, col, ok := cell(r2.Vec{X: 0, Y: minY}); ok {
		for row := range height {
			canvas[row][col] = '│'
		}
	}

	for _, s := range samples {
		for _, b := range s.Bodies {
			if row, col, ok := cell(b.Pos); ok {
				canvas[row][col] = trailGlyphs[int(b.ID)%len(trailGlyphs)]
			}
		}
	}
	for _, b := range samples[len(samples)-1].Bodies {
		if row, col, ok := cell(b.Pos); ok {
			canvas[row][col] = '@'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
