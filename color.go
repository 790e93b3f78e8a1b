package colortrack

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// HSV is a colour on OpenCV's 8-bit scale: hue in [0,180), saturation and
// value in [0,255].
type HSV struct {
	H, S, V uint8
}

func (c HSV) scalar() gocv.Scalar {
	return gocv.NewScalar(float64(c.H), float64(c.S), float64(c.V), 0)
}

func (c HSV) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.H, c.S, c.V)
}

// ColorRange is an inclusive box in HSV space.
type ColorRange struct {
	Lower HSV
	Upper HSV
}

var (
	GreenBall    = ColorRange{Lower: HSV{29, 86, 6}, Upper: HSV{64, 255, 255}}
	PurpleObject = ColorRange{Lower: HSV{110, 50, 50}, Upper: HSV{130, 255, 255}}
)

func (r ColorRange) Validate() error {
	if r.Lower.H > 179 || r.Upper.H > 179 {
		return errors.Errorf("hue must be in [0,179], got %s-%s", r.Lower, r.Upper)
	}
	if r.Lower.H > r.Upper.H || r.Lower.S > r.Upper.S || r.Lower.V > r.Upper.V {
		return errors.Errorf("lower bound %s exceeds upper bound %s", r.Lower, r.Upper)
	}
	return nil
}

// Contains reports whether c lies inside the range.
func (r ColorRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

func (r ColorRange) String() string {
	return fmt.Sprintf("%s-%s", r.Lower, r.Upper)
}

// ParseHexColor parses "#rrggbb" into an opaque RGBA usable by the gocv
// drawing functions.
func ParseHexColor(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "invalid colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
