package colortrack

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// StopReason says why a tracking run ended.
type StopReason int

const (
	StopEndOfStream StopReason = iota
	StopQuit
	StopTimeout
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopEndOfStream:
		return "end of stream"
	case StopQuit:
		return "quit"
	case StopTimeout:
		return "timeout"
	case StopCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result summarises a tracking run.
type Result struct {
	Frames      int
	Reason      StopReason
	Elapsed     time.Duration
	Coordinates map[string]image.Point
}

var errQuit = errors.New("quit requested")

// Run processes frames from source until it is exhausted, display reports a
// quit, or ctx is done. A deadline on ctx ends the run with StopTimeout, a
// cancellation with StopCancelled; neither is returned as an error. sink may
// be nil. Run does not close source, display or sink.
func (t *Tracker) Run(ctx context.Context, source FrameSource, display Display, sink FrameSink) (Result, error) {
	if display == nil {
		display = HeadlessDisplay{}
	}
	start := time.Now()
	res := Result{}

	err := ProcessVideo(ctx, source, func(frame *gocv.Mat) error {
		results, err := t.ProcessFrame(frame)
		if err != nil {
			return err
		}
		res.Frames++
		for _, r := range results {
			t.logger.Debugw("frame", "n", res.Frames, "target", r.Name, "point", r.Point.String(),
				"radius", r.Detection.Radius)
		}

		if sink != nil {
			if err := sink.WriteFrame(*frame); err != nil {
				return errors.Wrap(err, "writing frame")
			}
		}
		if display.Show(*frame) {
			return errQuit
		}
		return nil
	})

	res.Elapsed = time.Since(start)
	res.Coordinates = t.Coordinates()

	switch {
	case err == nil:
		res.Reason = StopEndOfStream
	case errors.Is(err, errQuit):
		res.Reason = StopQuit
	case errors.Is(err, context.DeadlineExceeded):
		res.Reason = StopTimeout
	case errors.Is(err, context.Canceled):
		res.Reason = StopCancelled
	default:
		return res, err
	}

	t.logger.Infow("tracking stopped", "reason", res.Reason.String(), "frames", res.Frames,
		"elapsed", res.Elapsed, "coordinates", res.Coordinates)
	return res, nil
}
