package geo

// Polygon is a closed chain of points.
type Polygon struct {
	Points []Point
}

func (s Segment) Length() int {
	return s.To.Norm() - s.From.Norm()
}
