package geo

import "time"

// Point is a location on the plane.
type Point struct {
	X, Y int
}

// NewPoint creates a point.
func NewPoint(x, y int) *Point {
	return &Point{X: x, Y: y}
}

func (p *Point) Shift(by Point) Point {
	return Point{X: p.X + by.X, Y: p.Y + by.Y}
}

func (p Point) Norm() int {
	return p.X*p.X + p.Y*p.Y
}

type (
	// Label names a segment.
	Label string

	Segment struct {
		From, To Point
		label    Label
		created  time.Time
	}
)

func NewSegment(from, to Point) Segment {
	return Segment{From: from, To: to, created: time.Now()}
}

func (s Segment) Mid() *Point {
	return NewPoint((s.From.X+s.To.X)/2, (s.From.Y+s.To.Y)/2)
}

func (l Label) Upper() Label { return l }

type plain int
