package export

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/gravsim/internal/analysis"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/san-kum/gravsim/internal/viz"
	"gonum.org/v1/gonum/spatial/r2"
)

// minDotRadius keeps light bodies visible, in SVG pixels
const minDotRadius = 1.5

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func bodyColor(theme viz.Theme, id dynamo.Handle) string {
	if len(theme.Bodies) == 0 {
		return "#ffffff"
	}
	return string(theme.Bodies[int(id)%len(theme.Bodies)])
}

func writeBodies(sb *strings.Builder, s *snapshot.Snapshot, cam *viz.Camera, theme viz.Theme, width, height int) {
	scale := cam.Scale(width)
	for _, b := range s.Bodies {
		x, y := project(cam, b.Pos, width, height)
		r := math.Max(b.Radius*scale, minDotRadius)
		fmt.Fprintf(sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, r, bodyColor(theme, b.ID))
	}
}

// project is Camera.Project without rounding to whole pixels.
func project(cam *viz.Camera, p r2.Vec, width, height int) (float64, float64) {
	scale := cam.Scale(width)
	return float64(width)/2 + (p.X-cam.Center.X)*scale, float64(height)/2 - (p.Y-cam.Center.Y)*scale
}

// SnapshotSVG draws every body of s as a disc sized by its radius, framed
// to fit all bodies.
func SnapshotSVG(s *snapshot.Snapshot, theme viz.Theme, width, height int) string {
	if s == nil || width <= 0 || height <= 0 {
		return ""
	}
	cam := viz.NewCamera()
	lo, hi := s.Bounds()
	cam.Fit(lo, hi, width, height)

	var sb strings.Builder
	header(&sb, width, height)
	writeBodies(&sb, s, cam, theme, width, height)
	sb.WriteString("</svg>")
	return sb.String()
}

// TrajectoriesSVG draws the path of every body across samples, one
// polyline per body, with the final state drawn on top.
func TrajectoriesSVG(samples []*snapshot.Snapshot, theme viz.Theme, width, height int) string {
	if len(samples) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, s := range samples {
		if s.Len() == 0 {
			continue
		}
		slo, shi := s.Bounds()
		lo = r2.Vec{X: math.Min(lo.X, slo.X), Y: math.Min(lo.Y, slo.Y)}
		hi = r2.Vec{X: math.Max(hi.X, shi.X), Y: math.Max(hi.Y, shi.Y)}
	}
	if math.IsInf(lo.X, 0) {
		lo, hi = r2.Vec{}, r2.Vec{}
	}
	cam := viz.NewCamera()
	cam.Fit(lo, hi, width, height)

	var sb strings.Builder
	header(&sb, width, height)

	paths := analysis.Trajectories(samples)
	ids := make([]dynamo.Handle, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		path := paths[id]
		if len(path) < 2 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1" stroke-opacity="0.6" d="`, bodyColor(theme, id))
		for i, p := range path {
			x, y := project(cam, p, width, height)
			if i == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	writeBodies(&sb, samples[len(samples)-1], cam, theme, width, height)
	sb.WriteString("</svg>")
	return sb.String()
}
