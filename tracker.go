package colortrack

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DefaultWidth is the width every frame is scaled to before detection.
const DefaultWidth = 600

// Target is one colour to follow.
type Target struct {
	Name  string
	Range ColorRange
	Style Style
}

// DefaultTargets returns the green ball followed by the purple object.
func DefaultTargets() []Target {
	return []Target{
		{Name: "green", Range: GreenBall, Style: DefaultStyle},
		{Name: "purple", Range: PurpleObject, Style: SecondaryStyle},
	}
}

// TargetResult is what one frame produced for one target.
type TargetResult struct {
	Name      string
	Point     TrackedPoint
	Detection Detection
	// Coordinate is the last position at which the target was found.
	Coordinate image.Point
}

type targetState struct {
	target     Target
	detector   *ColorDetector
	history    *PointHistory
	coordinate image.Point
}

// Tracker runs the detection pipeline for each target over a stream of
// frames. Targets are processed in order and each keeps its own history.
type Tracker struct {
	Width  int
	Buffer int

	minRadius float64
	logger    *zap.SugaredLogger
	targets   []*targetState
	hsv       gocv.Mat
}

type TrackerOption func(*Tracker) error

func WithWidth(width int) TrackerOption {
	return func(t *Tracker) error {
		if width < 1 {
			return errors.Errorf("width must be positive, got %d", width)
		}
		t.Width = width
		return nil
	}
}

func WithBuffer(capacity int) TrackerOption {
	return func(t *Tracker) error {
		if capacity < 1 {
			return errors.Wrapf(ErrInvalidCapacity, "buffer %d", capacity)
		}
		t.Buffer = capacity
		return nil
	}
}

func WithTrackerMinRadius(radius float64) TrackerOption {
	return func(t *Tracker) error {
		t.minRadius = radius
		return nil
	}
}

func WithLogger(logger *zap.SugaredLogger) TrackerOption {
	return func(t *Tracker) error {
		t.logger = logger
		return nil
	}
}

func NewTracker(targets []Target, opts ...TrackerOption) (*Tracker, error) {
	if len(targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	t := &Tracker{
		Width:     DefaultWidth,
		Buffer:    DefaultBuffer,
		minRadius: DefaultMinRadius,
		logger:    zap.NewNop().Sugar(),
		hsv:       gocv.NewMat(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, multierr.Combine(err, t.Close())
		}
	}

	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if seen[target.Name] {
			return nil, multierr.Combine(
				errors.Errorf("duplicate target name %q", target.Name), t.Close())
		}
		seen[target.Name] = true

		detector, err := NewColorDetector(target.Range, WithMinRadius(t.minRadius))
		if err != nil {
			return nil, multierr.Combine(errors.Wrapf(err, "target %q", target.Name), t.Close())
		}
		history, err := NewPointHistory(t.Buffer)
		if err != nil {
			return nil, multierr.Combine(err, detector.Close(), t.Close())
		}
		t.targets = append(t.targets, &targetState{
			target:   target,
			detector: detector,
			history:  history,
		})
	}
	return t, nil
}

// ProcessFrame runs one iteration of the tracking loop on frame, which is
// resized and annotated in place.
func (t *Tracker) ProcessFrame(frame *gocv.Mat) ([]TargetResult, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	if frame.Cols() != t.Width {
		height := max(frame.Rows()*t.Width/frame.Cols(), 1)
		gocv.Resize(*frame, frame, image.Pt(t.Width, height), 0, 0, gocv.InterpolationArea)
	}
	gocv.CvtColor(*frame, &t.hsv, gocv.ColorBGRToHSV)

	results := make([]TargetResult, 0, len(t.targets))
	for _, s := range t.targets {
		det, err := s.detector.Detect(t.hsv)
		if err != nil {
			if !errors.Is(err, ErrDegenerateContour) {
				return nil, errors.Wrapf(err, "target %q", s.target.Name)
			}
			t.logger.Debugw("ignoring degenerate contour", "target", s.target.Name, "error", err)
		}

		point := det.Point()
		s.history.Push(point)
		if point.Found {
			s.coordinate = point.Point
		}
		DrawTarget(frame, s.target.Style, det, s.history, s.coordinate)

		results = append(results, TargetResult{
			Name:       s.target.Name,
			Point:      point,
			Detection:  det,
			Coordinate: s.coordinate,
		})
	}
	return results, nil
}

// TrackImage runs ProcessFrame on a Go image. The returned frame holds the
// overlay and must be closed by the caller.
func (t *Tracker) TrackImage(img image.Image) (gocv.Mat, []TargetResult, error) {
	if img.Bounds().Dx() != t.Width {
		img = resize.Resize(uint(t.Width), 0, img, resize.Bilinear)
	}
	frame, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), nil, errors.Wrap(err, "converting image")
	}
	results, err := t.ProcessFrame(&frame)
	if err != nil {
		return frame, nil, err
	}
	return frame, results, nil
}

// History returns the point history of the named target, or nil.
func (t *Tracker) History(name string) *PointHistory {
	if s := t.state(name); s != nil {
		return s.history
	}
	return nil
}

// Coordinate returns the last position at which the named target was found.
func (t *Tracker) Coordinate(name string) image.Point {
	if s := t.state(name); s != nil {
		return s.coordinate
	}
	return image.Point{}
}

// Coordinates returns the last known position of every target.
func (t *Tracker) Coordinates() map[string]image.Point {
	out := make(map[string]image.Point, len(t.targets))
	for _, s := range t.targets {
		out[s.target.Name] = s.coordinate
	}
	return out
}

// Targets lists the tracked targets in processing order.
func (t *Tracker) Targets() []Target {
	out := make([]Target, len(t.targets))
	for i, s := range t.targets {
		out[i] = s.target
	}
	return out
}

// Reset clears histories and last known positions.
func (t *Tracker) Reset() {
	for _, s := range t.targets {
		s.history.Reset()
		s.coordinate = image.Point{}
	}
}

func (t *Tracker) Close() error {
	var err error
	for _, s := range t.targets {
		err = multierr.Combine(err, s.detector.Close())
	}
	t.targets = nil
	return multierr.Combine(err, t.hsv.Close())
}

func (t *Tracker) state(name string) *targetState {
	for _, s := range t.targets {
		if s.target.Name == name {
			return s
		}
	}
	return nil
}
