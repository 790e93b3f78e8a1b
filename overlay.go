package colortrack

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Style controls how one target is drawn on the frame.
type Style struct {
	TrailColor    color.RGBA
	CircleColor   color.RGBA
	CentroidColor color.RGBA
	// Label is appended to the axis names in the coordinate text, so "2"
	// renders "x2: .., y2: ..".
	Label string
	// TextX is the horizontal position of the coordinate text.
	TextX int
}

var (
	yellow = color.RGBA{R: 255, G: 255, A: 255}
	red    = color.RGBA{R: 255, A: 255}
	purple = color.RGBA{R: 182, G: 23, B: 222, A: 255}
)

// DefaultStyle is used for the first target.
var DefaultStyle = Style{
	TrailColor:    yellow,
	CircleColor:   yellow,
	CentroidColor: red,
	TextX:         10,
}

// SecondaryStyle is used for the second target.
var SecondaryStyle = Style{
	TrailColor:    purple,
	CircleColor:   yellow,
	CentroidColor: red,
	Label:         "2",
	TextX:         100,
}

// Segment is one piece of a trail.
type Segment struct {
	From, To  image.Point
	Thickness int
}

// TrailThickness is the line width of the segment ending at index: thick
// near the newest point, tapering towards the oldest.
func TrailThickness(capacity, index int) int {
	t := int(math.Sqrt(float64(capacity)/float64(index+1)) * 2.5)
	if t < 1 {
		return 1
	}
	return t
}

// TrailSegments joins each pair of adjacent found points in h. Pairs with an
// absent point produce no segment.
func TrailSegments(h *PointHistory) []Segment {
	var segments []Segment
	for i := 1; i < h.Len(); i++ {
		prev, cur := h.At(i-1), h.At(i)
		if !prev.Found || !cur.Found {
			continue
		}
		segments = append(segments, Segment{
			From:      prev.Point,
			To:        cur.Point,
			Thickness: TrailThickness(h.Cap(), i),
		})
	}
	return segments
}

// CoordinateText is the label drawn in the bottom-left of the frame.
func CoordinateText(label string, p image.Point) string {
	return fmt.Sprintf("x%s: %d, y%s: %d", label, p.X, label, p.Y)
}

// DrawTarget renders the detection marker, the trail and the coordinate label.
func DrawTarget(frame *gocv.Mat, style Style, det Detection, h *PointHistory, coord image.Point) {
	if det.Found {
		gocv.Circle(frame, det.Center, int(det.Radius), style.CircleColor, 2)
		gocv.Circle(frame, det.Centroid, 5, style.CentroidColor, -1)
	}

	for _, s := range TrailSegments(h) {
		gocv.Line(frame, s.From, s.To, style.TrailColor, s.Thickness)
	}

	gocv.PutText(frame, CoordinateText(style.Label, coord), image.Pt(style.TextX, frame.Rows()-10),
		gocv.FontHersheySimplex, 0.35, style.TrailColor, 1)
}
