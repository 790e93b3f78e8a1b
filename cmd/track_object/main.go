// Command track_object follows a green ball and a purple object in a camera
// feed or video file and draws their trails.
package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/colortrack"
)

const (
	flagOutput = "output"
	flagCodec  = "codec"
	flagImage  = "image"
)

func run(args []string) int {
	app := &cli.App{
		Name:  "track_object",
		Usage: "track coloured objects in a video stream",
		Flags: append(colortrack.CommonFlags(),
			&cli.StringFlag{
				Name:  flagOutput,
				Usage: "record the annotated frames to `FILE`",
			},
			&cli.StringFlag{
				Name:  flagCodec,
				Value: "mp4v",
				Usage: "fourcc codec used with --output",
			},
			&cli.StringFlag{
				Name:  flagImage,
				Usage: "track a single PNG or JPEG `FILE` instead of a video",
			},
		),
		Action: track,
	}
	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func track(c *cli.Context) (err error) {
	logger, err := colortrack.NewLogger("track_object", c.Bool(colortrack.FlagDebug))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	targets, err := colortrack.TargetsFromFlags(c, colortrack.DefaultTargets())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker, err := colortrack.NewTrackerFromFlags(c, targets, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, tracker.Close())
	}()
	for _, target := range tracker.Targets() {
		logger.Infow("tracking", "target", target.Name, "range", target.Range.String())
	}

	if path := c.String(flagImage); path != "" {
		return trackImage(ctx, c, tracker, path, logger)
	}

	source, err := colortrack.OpenSource(c.String(colortrack.FlagVideo), c.Int(colortrack.FlagDevice))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, source.Close())
	}()
	logger.Infow("opened video source", "file", source.IsFile(),
		"width", source.Info.Width, "height", source.Info.Height, "fps", source.Info.FPS)

	display := colortrack.DisplayFromFlags(c, "Frame")
	defer func() {
		err = multierr.Combine(err, display.Close())
	}()

	var sink colortrack.FrameSink
	if output := c.String(flagOutput); output != "" {
		videoSink, sinkErr := colortrack.NewVideoSink(output, c.String(flagCodec),
			source.Info.FPS, source.Info.Scaled(tracker.Width))
		if sinkErr != nil {
			return sinkErr
		}
		defer func() {
			err = multierr.Combine(err, videoSink.Close())
		}()
		sink = videoSink
	}

	res, err := tracker.Run(ctx, source, display, sink)
	if err != nil {
		return err
	}
	for name, p := range res.Coordinates {
		logger.Infow("last position", "target", name, "x", p.X, "y", p.Y)
	}
	return nil
}

// trackImage annotates one still image, then shows it until q is pressed
// and optionally writes it to --output.
func trackImage(ctx context.Context, c *cli.Context, tracker *colortrack.Tracker, path string, logger *zap.SugaredLogger) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening image")
	}
	img, _, err := image.Decode(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}

	frame, results, err := tracker.TrackImage(img)
	defer func() {
		err = multierr.Combine(err, frame.Close())
	}()
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Infow("position", "target", r.Name, "point", r.Point.String(), "radius", r.Detection.Radius)
	}

	if output := c.String(flagOutput); output != "" {
		if !gocv.IMWrite(output, frame) {
			return errors.Errorf("cannot write %s", output)
		}
	}
	if c.Bool(colortrack.FlagHeadless) {
		return nil
	}

	display := colortrack.DisplayFromFlags(c, "Frame")
	defer func() {
		err = multierr.Combine(err, display.Close())
	}()
	for ctx.Err() == nil {
		if display.Show(frame) {
			break
		}
	}
	return nil
}

func main() {
	os.Exit(run(os.Args))
}
