package colortrack

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Flag names shared by the commands.
const (
	FlagVideo    = "video"
	FlagDevice   = "device"
	FlagBuffer   = "buffer"
	FlagWidth    = "width"
	FlagConfig   = "config"
	FlagHeadless = "headless"
	FlagDebug    = "debug"
)

// CommonFlags are the flags every tracking command accepts.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagVideo,
			Aliases: []string{"v"},
			Usage:   "path to the (optional) video `FILE`; the camera is used when omitted",
		},
		&cli.IntFlag{
			Name:  FlagDevice,
			Value: 0,
			Usage: "camera device id used when no video file is given",
		},
		&cli.IntFlag{
			Name:    FlagBuffer,
			Aliases: []string{"b"},
			Value:   DefaultBuffer,
			Usage:   "number of tracked points kept for the trail",
		},
		&cli.IntFlag{
			Name:  FlagWidth,
			Value: DefaultWidth,
			Usage: "width frames are resized to before detection",
		},
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "load target colours from a JSON5 `FILE`",
		},
		&cli.BoolFlag{
			Name:  FlagHeadless,
			Usage: "do not open a window",
		},
		&cli.BoolFlag{
			Name:  FlagDebug,
			Usage: "enable debug logging",
		},
	}
}

// TargetsFromFlags loads targets from --config, or returns defaults.
func TargetsFromFlags(c *cli.Context, defaults []Target) ([]Target, error) {
	if path := c.String(FlagConfig); path != "" {
		return LoadTargets(path)
	}
	return defaults, nil
}

// NewTrackerFromFlags builds a tracker for targets using --width and --buffer.
func NewTrackerFromFlags(c *cli.Context, targets []Target, logger *zap.SugaredLogger) (*Tracker, error) {
	return NewTracker(targets,
		WithWidth(c.Int(FlagWidth)),
		WithBuffer(c.Int(FlagBuffer)),
		WithLogger(logger),
	)
}

// DisplayFromFlags opens a window titled title unless --headless is set.
func DisplayFromFlags(c *cli.Context, title string) Display {
	if c.Bool(FlagHeadless) {
		return HeadlessDisplay{}
	}
	return NewWindowDisplay(title)
}
