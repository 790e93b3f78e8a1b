package colortrack

import (
	"image/color"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// TargetConfig describes one target in a targets file.
type TargetConfig struct {
	Name          string `json:"name"`
	Lower         []int  `json:"lower"`
	Upper         []int  `json:"upper"`
	TrailColor    string `json:"trail_color,omitempty"`
	CircleColor   string `json:"circle_color,omitempty"`
	CentroidColor string `json:"centroid_color,omitempty"`
	Label         string `json:"label,omitempty"`
	TextX         *int   `json:"text_x,omitempty"`
}

// TargetsFile is the JSON5 document read by LoadTargets, e.g.
//
//	{
//	  targets: [
//	    {name: "green", lower: [29, 86, 6], upper: [64, 255, 255], trail_color: "#ffff00"},
//	  ],
//	}
type TargetsFile struct {
	Targets []TargetConfig `json:"targets"`
}

func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read targets file %s", path)
	}
	targets, err := ParseTargets(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse targets file %s", path)
	}
	return targets, nil
}

func ParseTargets(data []byte) ([]Target, error) {
	var file TargetsFile
	if err := json5.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, errors.New("no targets defined")
	}
	targets := make([]Target, 0, len(file.Targets))
	for i, tc := range file.Targets {
		t, err := tc.Target(i)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Target converts the configuration of the index-th target. Unset styling
// falls back to DefaultStyle for the first target and SecondaryStyle, shifted
// right, for the others.
func (c TargetConfig) Target(index int) (Target, error) {
	name := c.Name
	if name == "" {
		name = "target" + strconv.Itoa(index+1)
	}
	lower, err := parseHSV(c.Lower)
	if err != nil {
		return Target{}, errors.Wrapf(err, "target %q lower bound", name)
	}
	upper, err := parseHSV(c.Upper)
	if err != nil {
		return Target{}, errors.Wrapf(err, "target %q upper bound", name)
	}
	r := ColorRange{Lower: lower, Upper: upper}
	if err := r.Validate(); err != nil {
		return Target{}, errors.Wrapf(err, "target %q", name)
	}

	style := DefaultStyle
	if index > 0 {
		style = SecondaryStyle
		style.Label = strconv.Itoa(index + 1)
		style.TextX = 10 + 90*index
	}
	for _, col := range []struct {
		hex string
		dst *color.RGBA
	}{
		{c.TrailColor, &style.TrailColor},
		{c.CircleColor, &style.CircleColor},
		{c.CentroidColor, &style.CentroidColor},
	} {
		if col.hex == "" {
			continue
		}
		if *col.dst, err = ParseHexColor(col.hex); err != nil {
			return Target{}, errors.Wrapf(err, "target %q", name)
		}
	}
	if c.Label != "" {
		style.Label = c.Label
	}
	if c.TextX != nil {
		style.TextX = *c.TextX
	}

	return Target{Name: name, Range: r, Style: style}, nil
}

func parseHSV(v []int) (HSV, error) {
	if len(v) != 3 {
		return HSV{}, errors.Errorf("expected [h, s, v], got %d values", len(v))
	}
	for _, c := range v {
		if c < 0 || c > 255 {
			return HSV{}, errors.Errorf("component %d out of range [0,255]", c)
		}
	}
	return HSV{H: uint8(v[0]), S: uint8(v[1]), V: uint8(v[2])}, nil
}
