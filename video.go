package colortrack

import (
	"context"
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// ErrNoFrame is returned by a camera source when a read produced nothing.
	// The next read may succeed.
	ErrNoFrame = errors.New("no frame available")
	// ErrSourceFailed is returned once a camera has failed too many reads in a row.
	ErrSourceFailed = errors.New("video source stopped producing frames")
)

// DefaultMaxFailures is the number of consecutive failed camera reads
// tolerated before the source gives up.
const DefaultMaxFailures = 30

// FrameSource yields frames until it returns io.EOF.
type FrameSource interface {
	Read(frame *gocv.Mat) error
	Close() error
}

// FrameSink receives annotated frames.
type FrameSink interface {
	WriteFrame(frame gocv.Mat) error
}

type VideoInfo struct {
	Width      int
	Height     int
	FPS        float64
	TotalFrame int
}

func newVideoInfo(capture *gocv.VideoCapture) *VideoInfo {
	return &VideoInfo{
		Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        capture.Get(gocv.VideoCaptureFPS),
		TotalFrame: int(capture.Get(gocv.VideoCaptureFrameCount)),
	}
}

// Scaled returns the frame size after resizing to width with the aspect ratio kept.
func (v *VideoInfo) Scaled(width int) image.Point {
	if v.Width == 0 {
		return image.Pt(width, 0)
	}
	return image.Pt(width, v.Height*width/v.Width)
}

// frameReader is the part of gocv.VideoCapture a Source reads through.
type frameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Source reads frames from a video file or a camera.
type Source struct {
	Info *VideoInfo

	capture     frameReader
	file        bool
	failures    int
	maxFailures int
}

type SourceOption func(*Source)

// WithMaxFailures sets how many consecutive failed camera reads are tolerated.
func WithMaxFailures(n int) SourceOption {
	return func(s *Source) {
		s.maxFailures = n
	}
}

// OpenSource opens the video file at path, or camera device when path is empty.
func OpenSource(path string, device int, opts ...SourceOption) (*Source, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if path != "" {
		capture, err = gocv.VideoCaptureFile(path)
	} else {
		capture, err = gocv.VideoCaptureDevice(device)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening video source")
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("cannot open video capture (file %q, device %d)", path, device)
	}

	return newSource(capture, newVideoInfo(capture), path != "", opts...), nil
}

func newSource(capture frameReader, info *VideoInfo, file bool, opts ...SourceOption) *Source {
	s := &Source{
		Info:        info,
		capture:     capture,
		file:        file,
		maxFailures: DefaultMaxFailures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsFile reports whether the source is a video file rather than a camera.
func (s *Source) IsFile() bool {
	return s.file
}

// Read grabs the next frame. A file source returns io.EOF when exhausted. A
// camera source returns ErrNoFrame for a failed read and ErrSourceFailed
// once too many reads have failed in a row.
func (s *Source) Read(frame *gocv.Mat) error {
	if ok := s.capture.Read(frame); ok && !frame.Empty() {
		s.failures = 0
		return nil
	}
	if s.file {
		return io.EOF
	}
	s.failures++
	if s.failures >= s.maxFailures {
		return errors.Wrapf(ErrSourceFailed, "%d consecutive failed reads", s.failures)
	}
	return ErrNoFrame
}

func (s *Source) Close() error {
	return s.capture.Close()
}

type VideoSink struct {
	VideoWriter *gocv.VideoWriter
	Codec       string
	TargetPath  string
}

// NewVideoSink records frames of the given size to targetPath.
func NewVideoSink(targetPath, codec string, fps float64, size image.Point) (*VideoSink, error) {
	if fps <= 0 {
		fps = 30
	}
	videoWriter, err := gocv.VideoWriterFile(targetPath, codec, fps, size.X, size.Y, true)
	if err != nil {
		return nil, errors.Wrapf(err, "creating video writer for %s", targetPath)
	}

	return &VideoSink{
		VideoWriter: videoWriter,
		Codec:       codec,
		TargetPath:  targetPath,
	}, nil
}

func (v *VideoSink) WriteFrame(frame gocv.Mat) error {
	return v.VideoWriter.Write(frame)
}

func (v *VideoSink) Close() error {
	return v.VideoWriter.Close()
}

// ProcessVideo feeds every frame of source to callback until the source is
// exhausted, ctx is done, or callback returns an error. Exhaustion is not an
// error. Failed camera reads are skipped.
func ProcessVideo(ctx context.Context, source FrameSource, callback func(frame *gocv.Mat) error) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := source.Read(&frame)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrNoFrame):
			continue
		default:
			return err
		}
		if frame.Empty() {
			continue
		}
		if err := callback(&frame); err != nil {
			return err
		}
	}
}
