package colortrack

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"go.viam.com/test"
	"gocv.io/x/gocv"
)

var (
	pureGreen = color.RGBA{G: 255, A: 255}
	// hue 120 on OpenCV's scale, inside PurpleObject
	pureBlue = color.RGBA{B: 255, A: 255}
)

type disc struct {
	center image.Point
	radius int
	color  color.RGBA
}

// syntheticImage is a black w x h image with the given discs painted on it.
func syntheticImage(w, h int, discs ...disc) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{A: 255}}, image.Point{}, draw.Src)
	for _, d := range discs {
		r2 := d.radius * d.radius
		for y := d.center.Y - d.radius; y <= d.center.Y+d.radius; y++ {
			for x := d.center.X - d.radius; x <= d.center.X+d.radius; x++ {
				dx, dy := x-d.center.X, y-d.center.Y
				if dx*dx+dy*dy <= r2 {
					img.SetRGBA(x, y, d.color)
				}
			}
		}
	}
	return img
}

func syntheticFrame(t *testing.T, w, h int, discs ...disc) gocv.Mat {
	t.Helper()
	frame, err := gocv.ImageToMatRGB(syntheticImage(w, h, discs...))
	test.That(t, err, test.ShouldBeNil)
	return frame
}

func greenTarget() Target {
	return Target{Name: "green", Range: GreenBall, Style: DefaultStyle}
}

func newTestTracker(t *testing.T, targets []Target, opts ...TrackerOption) *Tracker {
	t.Helper()
	tracker, err := NewTracker(targets, opts...)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, tracker.Close(), test.ShouldBeNil)
	})
	return tracker
}

func TestTrackerFillsHistoryWithSteadyTarget(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()}, WithBuffer(5))
	ball := disc{center: image.Pt(50, 50), radius: 20, color: pureGreen}

	for i := 0; i < 7; i++ {
		frame := syntheticFrame(t, 600, 450, ball)
		results, err := tracker.ProcessFrame(&frame)
		test.That(t, frame.Close(), test.ShouldBeNil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, results, test.ShouldHaveLength, 1)
		test.That(t, results[0].Point, test.ShouldResemble, At(50, 50))
		test.That(t, results[0].Detection.Radius, test.ShouldBeGreaterThan, 10)
	}

	h := tracker.History("green")
	test.That(t, h.Len(), test.ShouldEqual, 5)
	for _, p := range h.Points() {
		test.That(t, p, test.ShouldResemble, At(50, 50))
	}
	test.That(t, tracker.Coordinate("green"), test.ShouldResemble, image.Pt(50, 50))
}

func TestTrackerFrameWithoutTarget(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	frame := syntheticFrame(t, 600, 450)
	defer frame.Close()
	results, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0].Point.Found, test.ShouldBeFalse)
	test.That(t, results[0].Detection.Contours, test.ShouldEqual, 0)
	test.That(t, tracker.History("green").Newest(), test.ShouldResemble, Absent)
	test.That(t, tracker.Coordinate("green"), test.ShouldResemble, image.Point{})

	// only the coordinate label near the bottom edge is drawn
	test.That(t, nonZeroPixels(t, frame, image.Rect(0, 0, frame.Cols(), frame.Rows()-30)), test.ShouldEqual, 0)
	test.That(t, nonZeroPixels(t, frame, image.Rect(0, frame.Rows()-30, frame.Cols(), frame.Rows())),
		test.ShouldBeGreaterThan, 0)
}

func TestTrackerDrawsAboveLabelWhenFound(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	found := syntheticFrame(t, 600, 450, disc{center: image.Pt(300, 200), radius: 30, color: pureGreen})
	defer found.Close()
	before := nonZeroPixels(t, found, image.Rect(0, 0, found.Cols(), found.Rows()-30))
	_, err := tracker.ProcessFrame(&found)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, nonZeroPixels(t, found, image.Rect(0, 0, found.Cols(), found.Rows()-30)),
		test.ShouldBeGreaterThan, before)
}

func TestProcessFrameVeryWideFrame(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	frame := syntheticFrame(t, 1200, 1)
	defer frame.Close()
	results, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Cols(), test.ShouldEqual, 600)
	test.That(t, frame.Rows(), test.ShouldEqual, 1)
	test.That(t, results[0].Point.Found, test.ShouldBeFalse)
}

// nonZeroPixels counts pixels of frame inside r that are not black.
func nonZeroPixels(t *testing.T, frame gocv.Mat, r image.Rectangle) int {
	t.Helper()
	region := frame.Region(r)
	defer region.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray)
}

func TestTrackerIgnoresSmallBlobs(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	frame := syntheticFrame(t, 600, 450, disc{center: image.Pt(200, 200), radius: 6, color: pureGreen})
	defer frame.Close()
	results, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0].Detection.Contours, test.ShouldBeGreaterThan, 0)
	test.That(t, results[0].Detection.Radius, test.ShouldBeLessThanOrEqualTo, 10)
	test.That(t, results[0].Point.Found, test.ShouldBeFalse)
	test.That(t, tracker.History("green").Newest(), test.ShouldResemble, Absent)
}

func TestTrackerMinRadiusOption(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()}, WithTrackerMinRadius(3))

	frame := syntheticFrame(t, 600, 450, disc{center: image.Pt(200, 200), radius: 6, color: pureGreen})
	defer frame.Close()
	results, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0].Point, test.ShouldResemble, At(200, 200))
}

func TestTrackerPicksLargestBlob(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	frame := syntheticFrame(t, 600, 450,
		disc{center: image.Pt(100, 100), radius: 15, color: pureGreen},
		disc{center: image.Pt(400, 300), radius: 40, color: pureGreen},
	)
	defer frame.Close()
	results, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results[0].Detection.Contours, test.ShouldEqual, 2)
	test.That(t, results[0].Point, test.ShouldResemble, At(400, 300))
}

func TestTrackerTwoTargetsAreIndependent(t *testing.T) {
	tracker := newTestTracker(t, DefaultTargets(), WithBuffer(8))

	both := syntheticFrame(t, 600, 450,
		disc{center: image.Pt(100, 100), radius: 25, color: pureGreen},
		disc{center: image.Pt(400, 300), radius: 30, color: pureBlue},
	)
	defer both.Close()
	results, err := tracker.ProcessFrame(&both)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 2)
	test.That(t, results[0].Name, test.ShouldEqual, "green")
	test.That(t, results[0].Point, test.ShouldResemble, At(100, 100))
	test.That(t, results[1].Name, test.ShouldEqual, "purple")
	test.That(t, results[1].Point, test.ShouldResemble, At(400, 300))

	greenOnly := syntheticFrame(t, 600, 450, disc{center: image.Pt(120, 100), radius: 25, color: pureGreen})
	defer greenOnly.Close()
	_, err = tracker.ProcessFrame(&greenOnly)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, tracker.History("green").Points(), test.ShouldResemble, []TrackedPoint{At(120, 100), At(100, 100)})
	test.That(t, tracker.History("purple").Points(), test.ShouldResemble, []TrackedPoint{Absent, At(400, 300)})
	test.That(t, tracker.Coordinates(), test.ShouldResemble, map[string]image.Point{
		"green":  image.Pt(120, 100),
		"purple": image.Pt(400, 300),
	})

	tracker.Reset()
	test.That(t, tracker.History("green").Len(), test.ShouldEqual, 0)
	test.That(t, tracker.Coordinate("purple"), test.ShouldResemble, image.Point{})
}

func TestProcessFrameResizesToWidth(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	frame := syntheticFrame(t, 1200, 900, disc{center: image.Pt(600, 400), radius: 60, color: pureGreen})
	defer frame.Close()
	results, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Cols(), test.ShouldEqual, 600)
	test.That(t, frame.Rows(), test.ShouldEqual, 450)
	test.That(t, results[0].Point.Found, test.ShouldBeTrue)
	test.That(t, results[0].Point.X, test.ShouldAlmostEqual, 300, 1)
	test.That(t, results[0].Point.Y, test.ShouldAlmostEqual, 200, 1)
}

func TestTrackImage(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})

	img := syntheticImage(1200, 900, disc{center: image.Pt(100, 100), radius: 40, color: pureGreen})
	frame, results, err := tracker.TrackImage(img)
	defer frame.Close()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Cols(), test.ShouldEqual, 600)
	test.That(t, results[0].Point.Found, test.ShouldBeTrue)
	test.That(t, results[0].Point.X, test.ShouldAlmostEqual, 50, 1)
	test.That(t, results[0].Point.Y, test.ShouldAlmostEqual, 50, 1)
}

func TestProcessFrameRejectsEmptyFrame(t *testing.T) {
	tracker := newTestTracker(t, []Target{greenTarget()})
	frame := gocv.NewMat()
	defer frame.Close()
	_, err := tracker.ProcessFrame(&frame)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewTrackerErrors(t *testing.T) {
	_, err := NewTracker(nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewTracker([]Target{greenTarget(), greenTarget()})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")

	_, err = NewTracker([]Target{{Name: "bad", Range: ColorRange{Lower: HSV{H: 90}, Upper: HSV{H: 10}}}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad")

	_, err = NewTracker([]Target{greenTarget()}, WithBuffer(0))
	test.That(t, errors.Is(err, ErrInvalidCapacity), test.ShouldBeTrue)

	_, err = NewTracker([]Target{greenTarget()}, WithWidth(0))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestColorDetectorOptions(t *testing.T) {
	d, err := NewColorDetector(GreenBall, WithMinRadius(3), WithMorphIterations(0))
	test.That(t, err, test.ShouldBeNil)
	defer d.Close()
	test.That(t, d.MinRadius, test.ShouldEqual, 3.0)
	test.That(t, d.MorphIterations, test.ShouldEqual, 0)

	_, err = NewColorDetector(GreenBall, WithMinRadius(-1))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewColorDetector(GreenBall, WithMorphIterations(-1))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestColorDetectorMinRadius(t *testing.T) {
	d, err := NewColorDetector(GreenBall, WithMinRadius(3))
	test.That(t, err, test.ShouldBeNil)
	defer d.Close()

	frame := syntheticFrame(t, 600, 450, disc{center: image.Pt(200, 200), radius: 6, color: pureGreen})
	defer frame.Close()
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	det, err := d.Detect(hsv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, det.Found, test.ShouldBeTrue)
	test.That(t, det.Point(), test.ShouldResemble, At(200, 200))
	test.That(t, det.String(), test.ShouldContainSubstring, "(200, 200)")
}
