// Command vision_client connects to a controller and reports the position of
// the green ball whenever it is asked for one.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/colortrack"
)

const (
	flagHost    = "host"
	flagPort    = "port"
	flagTimeout = "timeout"

	defaultTimeout = 5 * time.Second
)

func run(args []string) int {
	app := &cli.App{
		Name:  "vision_client",
		Usage: "answer ipos/fpos position requests over TCP",
		Flags: append(colortrack.CommonFlags(),
			&cli.StringFlag{
				Name:  flagHost,
				Value: colortrack.DefaultHost(),
				Usage: "controller host",
			},
			&cli.IntFlag{
				Name:  flagPort,
				Value: colortrack.DefaultPort,
				Usage: "controller port",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: defaultTimeout,
				Usage: "how long each measurement watches the camera",
			},
		),
		Action: serve,
	}
	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func serve(c *cli.Context) (err error) {
	logger, err := colortrack.NewLogger("vision_client", c.Bool(colortrack.FlagDebug))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	targets, err := colortrack.TargetsFromFlags(c, []colortrack.Target{clientTarget()})
	if err != nil {
		return err
	}
	target := targets[0]

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := net.JoinHostPort(c.String(flagHost), strconv.Itoa(c.Int(flagPort)))
	conn, err := colortrack.Dial(ctx, address)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, ignoreClosed(conn.Close()))
	}()
	logger.Infow("connected", "address", address)

	track := func(ctx context.Context) (image.Point, error) {
		return measure(ctx, c, target, logger)
	}
	responder := colortrack.NewResponder(conn, track, colortrack.WithResponderLogger(logger))
	if err := responder.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// measure watches the camera for --timeout and returns the last position of
// target. The camera and window only live for one measurement.
func measure(ctx context.Context, c *cli.Context, target colortrack.Target, logger *zap.SugaredLogger) (p image.Point, err error) {
	tracker, err := colortrack.NewTrackerFromFlags(c, []colortrack.Target{target}, logger)
	if err != nil {
		return p, err
	}
	defer func() {
		err = multierr.Combine(err, tracker.Close())
	}()

	source, err := colortrack.OpenSource(c.String(colortrack.FlagVideo), c.Int(colortrack.FlagDevice))
	if err != nil {
		return p, err
	}
	defer func() {
		err = multierr.Combine(err, source.Close())
	}()

	display := colortrack.DisplayFromFlags(c, "Frame")
	defer func() {
		err = multierr.Combine(err, display.Close())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.Duration(flagTimeout))
	defer cancel()

	res, err := tracker.Run(ctx, source, display, nil)
	if err != nil {
		return p, err
	}
	if res.Reason == colortrack.StopCancelled {
		return p, context.Canceled
	}
	return res.Coordinates[target.Name], nil
}

func clientTarget() colortrack.Target {
	style := colortrack.DefaultStyle
	style.TrailColor = color.RGBA{R: 255, A: 255}
	return colortrack.Target{Name: "green", Range: colortrack.GreenBall, Style: style}
}

// ignoreClosed drops the error from closing a connection that Serve already
// closed on cancellation.
func ignoreClosed(err error) error {
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func main() {
	os.Exit(run(os.Args))
}
