package colortrack

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// DefaultBuffer is the number of tracked points kept per target.
const DefaultBuffer = 64

// ErrInvalidCapacity is returned when a history is asked to hold fewer than one point.
var ErrInvalidCapacity = errors.New("history capacity must be at least 1")

// TrackedPoint is the centroid found in one frame. The zero value marks a
// frame in which nothing qualifying was found.
type TrackedPoint struct {
	image.Point
	Found bool
}

// Absent is the marker pushed for frames without a detection.
var Absent = TrackedPoint{}

// At returns a found point at (x, y).
func At(x, y int) TrackedPoint {
	return TrackedPoint{Point: image.Pt(x, y), Found: true}
}

func (p TrackedPoint) String() string {
	if !p.Found {
		return "absent"
	}
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// PointHistory is a bounded, most-recent-first sequence of tracked points.
// Absent markers are kept so the trail can break where the target was lost.
type PointHistory struct {
	capacity int
	points   []TrackedPoint
}

func NewPointHistory(capacity int) (*PointHistory, error) {
	if capacity < 1 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}
	return &PointHistory{
		capacity: capacity,
		points:   make([]TrackedPoint, 0, capacity),
	}, nil
}

// Push inserts p at index 0, evicting the oldest point once full.
func (h *PointHistory) Push(p TrackedPoint) {
	if len(h.points) < h.capacity {
		h.points = append(h.points, TrackedPoint{})
	}
	copy(h.points[1:], h.points[:len(h.points)-1])
	h.points[0] = p
}

// At returns the point i frames ago; 0 is the newest.
func (h *PointHistory) At(i int) TrackedPoint {
	return h.points[i]
}

func (h *PointHistory) Len() int {
	return len(h.points)
}

func (h *PointHistory) Cap() int {
	return h.capacity
}

// Newest returns the most recent entry, or Absent when the history is empty.
func (h *PointHistory) Newest() TrackedPoint {
	if len(h.points) == 0 {
		return Absent
	}
	return h.points[0]
}

// Points returns a copy of the history, newest first.
func (h *PointHistory) Points() []TrackedPoint {
	out := make([]TrackedPoint, len(h.points))
	copy(out, h.points)
	return out
}

func (h *PointHistory) Reset() {
	h.points = h.points[:0]
}
