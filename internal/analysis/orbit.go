package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
)

var ErrNoRevolution = errors.New("analysis: no complete revolution in samples")

// Orbit describes the motion of one body relative to the rest of the system.
type Orbit struct {
	Body dynamo.Handle
	// Period is measured from the first full revolution
	Period        float64
	Revolutions   int
	SemiMajorAxis float64
	Eccentricity  float64
	// KeplerPeriod is 2π√(a³/(G·M)) for the measured semi-major axis
	KeplerPeriod float64
}

func (o Orbit) RelativeError() float64 {
	if o.KeplerPeriod == 0 {
		return math.Inf(1)
	}
	return math.Abs(o.Period-o.KeplerPeriod) / o.KeplerPeriod
}

// KeplerPeriod returns 2π·√(a³/(G·M)).
func KeplerPeriod(a, g, totalMass float64) float64 {
	return 2 * math.Pi * math.Sqrt(a*a*a/(g*totalMass))
}

// MeasureOrbit follows body around the centre of mass of all other bodies.
// Samples must be dense enough that the body moves less than half a turn
// between consecutive samples.
func MeasureOrbit(samples []*snapshot.Snapshot, body dynamo.Handle, g float64) (Orbit, error) {
	orbit := Orbit{Body: body}
	if len(samples) < 3 {
		return orbit, fmt.Errorf("%w: need at least 3 samples, got %d", ErrNoRevolution, len(samples))
	}

	var (
		unwrapped, prevAngle float64
		rMin, rMax           = math.Inf(1), 0.0
		startTime            = samples[0].Time
		totalMass            float64
	)
	for i, s := range samples {
		rel, mass, err := relative(s, body)
		if err != nil {
			return orbit, err
		}
		if i == 0 {
			totalMass = mass
		}
		r := r2.Norm(rel)
		rMin = math.Min(rMin, r)
		rMax = math.Max(rMax, r)

		angle := math.Atan2(rel.Y, rel.X)
		if i > 0 {
			d := angle - prevAngle
			for d > math.Pi {
				d -= 2 * math.Pi
			}
			for d < -math.Pi {
				d += 2 * math.Pi
			}
			prevUnwrapped := unwrapped
			unwrapped += d

			turns := int(math.Abs(unwrapped) / (2 * math.Pi))
			if turns > orbit.Revolutions {
				orbit.Revolutions = turns
				if turns == 1 {
					// Interpolate the instant the angle completed 2π.
					frac := (2*math.Pi - math.Abs(prevUnwrapped)) / math.Abs(d)
					t0 := samples[i-1].Time
					orbit.Period = t0 + frac*(s.Time-t0) - startTime
				}
			}
		}
		prevAngle = angle
	}

	if orbit.Revolutions == 0 {
		return orbit, ErrNoRevolution
	}
	orbit.SemiMajorAxis = (rMin + rMax) / 2
	if rMax+rMin > 0 {
		orbit.Eccentricity = (rMax - rMin) / (rMax + rMin)
	}
	orbit.KeplerPeriod = KeplerPeriod(orbit.SemiMajorAxis, g, totalMass)
	return orbit, nil
}

// relative returns the separation of body from the centre of mass of the
// other bodies, and the total mass of the system.
func relative(s *snapshot.Snapshot, body dynamo.Handle) (r2.Vec, float64, error) {
	var (
		self   *snapshot.BodyView
		com    r2.Vec
		others float64
	)
	for i := range s.Bodies {
		b := &s.Bodies[i]
		if b.ID == body {
			self = b
			continue
		}
		com = r2.Add(com, r2.Scale(b.Mass, b.Pos))
		others += b.Mass
	}
	if self == nil {
		return r2.Vec{}, 0, &dynamo.UnknownHandleError{Handle: body}
	}
	if others == 0 {
		return r2.Vec{}, 0, fmt.Errorf("%w: body %d has nothing to orbit", ErrNoRevolution, body)
	}
	com = r2.Scale(1/others, com)
	return r2.Sub(self.Pos, com), others + self.Mass, nil
}
