package colortrack

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerateContour is returned when a contour encloses no area, so it has
// no centroid.
var ErrDegenerateContour = errors.New("contour has zero area")

// Moments holds the spatial moments of a contour up to first order.
type Moments struct {
	M00, M10, M01 float64
}

// ContourMoments computes the moments of the closed polygon described by
// points using Green's theorem. The result does not depend on the winding
// direction.
func ContourMoments(points []image.Point) Moments {
	n := len(points)
	if n < 3 {
		return Moments{}
	}

	var a00, a10, a01 float64
	prev := points[n-1]
	for _, p := range points {
		xp, yp := float64(prev.X), float64(prev.Y)
		x, y := float64(p.X), float64(p.Y)
		cross := xp*y - x*yp
		a00 += cross
		a10 += cross * (xp + x)
		a01 += cross * (yp + y)
		prev = p
	}

	m := Moments{M00: a00 / 2, M10: a10 / 6, M01: a01 / 6}
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// Centroid returns (m10/m00, m01/m00) rounded to the nearest pixel.
func (m Moments) Centroid() (image.Point, error) {
	if math.Abs(m.M00) < 1e-9 {
		return image.Point{}, ErrDegenerateContour
	}
	return image.Pt(
		int(math.Round(m.M10/m.M00)),
		int(math.Round(m.M01/m.M00)),
	), nil
}
