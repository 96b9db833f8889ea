package stream

import (
	"github.com/san-kum/gravsim/internal/json"
	"github.com/san-kum/gravsim/internal/snapshot"
)

// Body is the wire form of one published body.
type Body struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Mass   float64 `json:"mass"`
	Radius float64 `json:"radius"`
}

// Frame is the wire form of a snapshot.
type Frame struct {
	Step   int64   `json:"step"`
	Time   float64 `json:"time"`
	Status string  `json:"status"`
	Bodies []Body  `json:"bodies"`
}

func NewFrame(s *snapshot.Snapshot) Frame {
	f := Frame{
		Step:   s.Step,
		Time:   s.Time,
		Status: s.Status.String(),
		Bodies: make([]Body, 0, len(s.Bodies)),
	}
	for _, b := range s.Bodies {
		f.Bodies = append(f.Bodies, Body{
			ID:     int(b.ID),
			X:      b.Pos.X,
			Y:      b.Pos.Y,
			VX:     b.Vel.X,
			VY:     b.Vel.Y,
			Mass:   b.Mass,
			Radius: b.Radius,
		})
	}
	return f
}

func encodeFrame(s *snapshot.Snapshot) ([]byte, error) {
	return json.Marshal(NewFrame(s))
}
