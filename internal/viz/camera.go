package viz

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	fitMargin = 1.2
	fitEase   = 0.2
	minSpan   = 1e-6
)

// Camera maps world coordinates onto canvas sub-pixels with a uniform
// scale. Braille sub-pixels are close to square, so no aspect correction
// is applied.
type Camera struct {
	Center    r2.Vec
	HalfWidth float64
	// Follow re-fits the view to the bodies every frame
	Follow bool
	fitted bool
}

func NewCamera() *Camera {
	return &Camera{HalfWidth: 1, Follow: true}
}

// Fit eases the view towards the box lo..hi on a pw×ph pixel grid. The
// first call jumps straight there.
func (c *Camera) Fit(lo, hi r2.Vec, pw, ph int) {
	if pw <= 0 || ph <= 0 {
		return
	}
	center := r2.Scale(0.5, r2.Add(lo, hi))
	half := math.Max((hi.X-lo.X)/2, (hi.Y-lo.Y)/2*float64(pw)/float64(ph))
	half = math.Max(half*fitMargin, minSpan)

	if !c.fitted {
		c.Center, c.HalfWidth, c.fitted = center, half, true
		return
	}
	c.Center = r2.Add(c.Center, r2.Scale(fitEase, r2.Sub(center, c.Center)))
	c.HalfWidth += fitEase * (half - c.HalfWidth)
}

// Project returns the sub-pixel of world point p.
func (c *Camera) Project(p r2.Vec, pw, ph int) (int, int) {
	scale := c.Scale(pw)
	x := float64(pw)/2 + (p.X-c.Center.X)*scale
	y := float64(ph)/2 - (p.Y-c.Center.Y)*scale
	return int(math.Round(x)), int(math.Round(y))
}

// Scale is the number of sub-pixels per world unit.
func (c *Camera) Scale(pw int) float64 {
	return float64(pw) / 2 / c.HalfWidth
}

// Zoom scales the visible span by factor and stops following.
func (c *Camera) Zoom(factor float64) {
	c.HalfWidth = math.Max(c.HalfWidth*factor, minSpan)
	c.Follow = false
}

// Pan moves the view by a fraction of the visible half-width.
func (c *Camera) Pan(dx, dy float64) {
	c.Center = r2.Add(c.Center, r2.Scale(c.HalfWidth, r2.Vec{X: dx, Y: dy}))
	c.Follow = false
}
