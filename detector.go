package colortrack

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// DefaultMinRadius is the smallest enclosing radius, in pixels, accepted as a detection.
	DefaultMinRadius = 10.0
	// DefaultMorphIterations is how many times the mask is eroded and then dilated.
	DefaultMorphIterations = 2
)

// Detection is the result of looking for one colour in one frame.
type Detection struct {
	Found    bool
	Centroid image.Point // centre of mass of the largest blob
	Center   image.Point // centre of its minimum enclosing circle
	Radius   float32
	Area     float64
	Contours int
}

// Point converts the detection to a history entry.
func (d Detection) Point() TrackedPoint {
	if !d.Found {
		return Absent
	}
	return TrackedPoint{Point: d.Centroid, Found: true}
}

func (d Detection) String() string {
	if !d.Found {
		return fmt.Sprintf("no target (%d contours, radius %.1f)", d.Contours, d.Radius)
	}
	return fmt.Sprintf("target at (%d, %d) radius %.1f area %.0f",
		d.Centroid.X, d.Centroid.Y, d.Radius, d.Area)
}

// ColorDetector finds the largest blob of one colour range in an HSV frame.
type ColorDetector struct {
	Range           ColorRange
	MinRadius       float64
	MorphIterations int

	kernel gocv.Mat
}

type DetectorOption func(*ColorDetector) error

func WithMinRadius(radius float64) DetectorOption {
	return func(d *ColorDetector) error {
		if radius < 0 {
			return errors.Errorf("minimum radius must not be negative, got %v", radius)
		}
		d.MinRadius = radius
		return nil
	}
}

func WithMorphIterations(n int) DetectorOption {
	return func(d *ColorDetector) error {
		if n < 0 {
			return errors.Errorf("morphology iterations must not be negative, got %d", n)
		}
		d.MorphIterations = n
		return nil
	}
}

func NewColorDetector(r ColorRange, opts ...DetectorOption) (*ColorDetector, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	d := &ColorDetector{
		Range:           r,
		MinRadius:       DefaultMinRadius,
		MorphIterations: DefaultMorphIterations,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	// 3x3 rectangle, the same element OpenCV uses when no kernel is given.
	d.kernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	return d, nil
}

func (d *ColorDetector) Close() error {
	return d.kernel.Close()
}

// Mask writes the cleaned-up binary mask of hsv into dst.
func (d *ColorDetector) Mask(hsv gocv.Mat, dst *gocv.Mat) {
	gocv.InRangeWithScalar(hsv, d.Range.Lower.scalar(), d.Range.Upper.scalar(), dst)
	for i := 0; i < d.MorphIterations; i++ {
		gocv.Erode(*dst, dst, d.kernel)
	}
	for i := 0; i < d.MorphIterations; i++ {
		gocv.Dilate(*dst, dst, d.kernel)
	}
}

// Detect locates the largest blob of the detector's colour in hsv. A blob
// whose enclosing circle is not larger than MinRadius is reported as not
// found. A zero-area blob is reported as not found together with
// ErrDegenerateContour.
func (d *ColorDetector) Detect(hsv gocv.Mat) (Detection, error) {
	mask := gocv.NewMat()
	defer mask.Close()
	d.Mask(hsv, &mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	det := Detection{Contours: contours.Size()}
	if det.Contours == 0 {
		return det, nil
	}

	largest := 0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > det.Area {
			det.Area = area
			largest = i
		}
	}

	contour := contours.At(largest)
	x, y, radius := gocv.MinEnclosingCircle(contour)
	det.Center = image.Pt(int(x), int(y))
	det.Radius = radius

	centroid, err := ContourMoments(contour.ToPoints()).Centroid()
	if err != nil {
		return det, errors.Wrapf(err, "largest of %d contours", det.Contours)
	}
	det.Centroid = centroid

	if float64(radius) > d.MinRadius {
		det.Found = true
	}
	return det, nil
}
