package colortrack

import (
	"context"
	"fmt"
	"image"
	"io"
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultPort = 8888
	// MovingMarker follows the coordinate in the reply to a final-position command.
	MovingMarker = "moving"

	recvSize = 1024
)

// Command is a request received from the remote peer.
type Command int

const (
	CommandUnknown Command = iota
	// CommandInitialPosition measures and stores the origin position.
	CommandInitialPosition
	// CommandFinalPosition measures the displaced position.
	CommandFinalPosition
)

func (c Command) String() string {
	switch c {
	case CommandInitialPosition:
		return "ipos"
	case CommandFinalPosition:
		return "fpos"
	default:
		return "unknown"
	}
}

// ParseCommand matches by substring, so any message containing "ipos" is an
// initial-position request. "ipos" wins when both tokens appear.
func ParseCommand(msg string) Command {
	switch {
	case strings.Contains(msg, "ipos"):
		return CommandInitialPosition
	case strings.Contains(msg, "fpos"):
		return CommandFinalPosition
	default:
		return CommandUnknown
	}
}

// FormatCoordinate renders p the way the peer expects it: "(x, y)".
func FormatCoordinate(p image.Point) string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// DefaultHost is the local hostname, or localhost when it cannot be read.
func DefaultHost() string {
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return host
}

// Dial opens the single outbound connection the responder talks over.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", address)
	}
	return conn, nil
}

// TrackFunc runs one tracking session and returns the final coordinate.
type TrackFunc func(ctx context.Context) (image.Point, error)

// Responder answers position commands from a remote peer.
type Responder struct {
	conn   io.ReadWriteCloser
	track  TrackFunc
	logger *zap.SugaredLogger

	origin    image.Point
	displaced image.Point
}

type ResponderOption func(*Responder)

func WithResponderLogger(logger *zap.SugaredLogger) ResponderOption {
	return func(r *Responder) {
		r.logger = logger
	}
}

func NewResponder(conn io.ReadWriteCloser, track TrackFunc, opts ...ResponderOption) *Responder {
	r := &Responder{
		conn:   conn,
		track:  track,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Origin is the position measured by the last initial-position command.
func (r *Responder) Origin() image.Point {
	return r.origin
}

// Displaced is the position measured by the last final-position command.
func (r *Responder) Displaced() image.Point {
	return r.displaced
}

// Serve handles commands until the peer closes the connection (nil error) or
// ctx is done, in which case the connection is closed and ctx.Err() returned.
func (r *Responder) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		r.conn.Close()
	})
	defer stop()

	buf := make([]byte, recvSize)
	for {
		n, err := r.conn.Read(buf)
		if n > 0 {
			msg := string(buf[:n])
			r.logger.Infow("Received Command", "command", strings.TrimSpace(msg))
			if herr := r.Handle(ctx, msg); herr != nil {
				return herr
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				r.logger.Info("peer closed connection")
				return nil
			}
			return errors.Wrap(err, "receiving command")
		}
	}
}

// Handle runs a single command message.
//
// The reply to a final-position command carries the stored origin, not the
// freshly measured position, followed by MovingMarker.
func (r *Responder) Handle(ctx context.Context, msg string) error {
	cmd := ParseCommand(msg)
	switch cmd {
	case CommandInitialPosition:
		p, err := r.track(ctx)
		if err != nil {
			return errors.Wrap(err, "measuring origin")
		}
		r.origin = p
		r.logger.Infow("origin", "x", p.X, "y", p.Y)
		return r.send(FormatCoordinate(r.origin))
	case CommandFinalPosition:
		p, err := r.track(ctx)
		if err != nil {
			return errors.Wrap(err, "measuring displacement")
		}
		r.displaced = p
		r.logger.Infow("displaced", "x", p.X, "y", p.Y)
		if err := r.send(FormatCoordinate(r.origin)); err != nil {
			return err
		}
		return r.send(MovingMarker)
	default:
		r.logger.Debugw("ignoring command", "message", msg)
		return nil
	}
}

func (r *Responder) send(s string) error {
	if _, err := io.WriteString(r.conn, s); err != nil {
		return errors.Wrapf(err, "sending %q", s)
	}
	return nil
}
