package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidDensityLevel   = errors.New("density level must be between 1 and 5")
	ErrInvalidFontWeight     = errors.New("font weight must be a multiple of 100 between 100 and 900")
	ErrInvalidOpacity        = errors.New("opacity must be between 0 and 1")
	ErrInvalidFontDecoration = errors.New("font decorations may only contain 'u' and 't'")
)

// DensityLevel is how densely the watermark is tiled over the picture
type DensityLevel int

const (
	DensityMin    DensityLevel = 1
	DensityLow    DensityLevel = 2
	DensityMedium DensityLevel = 3
	DensityHigh   DensityLevel = 4
	DensityMax    DensityLevel = 5
)

// NewDensityLevel converts v into a DensityLevel without clamping
func NewDensityLevel(v int) (DensityLevel, error) {
	d := DensityLevel(v)
	if !d.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDensityLevel, v)
	}
	return d, nil
}

// DensityLevelFromSlider rounds a continuous slider value to the nearest level
func DensityLevelFromSlider(v float64) (DensityLevel, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidDensityLevel, v)
	}
	r := math.Round(v)
	if r < float64(DensityMin) || r > float64(DensityMax) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidDensityLevel, v)
	}
	return DensityLevel(r), nil
}

// Valid reports whether d is between DensityMin and DensityMax
func (d DensityLevel) Valid() bool {
	return d >= DensityMin && d <= DensityMax
}

// UnmarshalJSON accepts an integer level and rejects values outside 1..5
func (d *DensityLevel) UnmarshalJSON(b []byte) error {
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	level, err := NewDensityLevel(v)
	if err != nil {
		return err
	}
	*d = level
	return nil
}

// FontWeight is a CSS-style font weight
type FontWeight int

const (
	FontWeight100 FontWeight = 100 * (iota + 1)
	FontWeight200
	FontWeight300
	FontWeight400
	FontWeight500
	FontWeight600
	FontWeight700
	FontWeight800
	FontWeight900
)

// NewFontWeight converts v into a FontWeight without rounding
func NewFontWeight(v int) (FontWeight, error) {
	w := FontWeight(v)
	if !w.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidFontWeight, v)
	}
	return w, nil
}

// Valid reports whether w is a multiple of 100 between 100 and 900
func (w FontWeight) Valid() bool {
	return w >= FontWeight100 && w <= FontWeight900 && w%100 == 0
}

// UnmarshalJSON accepts an integer weight and rejects invalid ones
func (w *FontWeight) UnmarshalJSON(b []byte) error {
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	weight, err := NewFontWeight(v)
	if err != nil {
		return err
	}
	*w = weight
	return nil
}

// FontDecorations is a set of independent text decoration flags
type FontDecorations uint8

const (
	DecorationUnderline FontDecorations = 1 << iota
	DecorationLineThrough
)

// decorationCodes is in flag declaration order, which is also the wire order
var decorationCodes = []struct {
	flag FontDecorations
	code byte
}{
	{DecorationUnderline, 'u'},
	{DecorationLineThrough, 't'},
}

// Has reports whether every flag in flag is set
func (d FontDecorations) Has(flag FontDecorations) bool {
	return d&flag == flag
}

// String renders the set as the service expects it, e.g. "ut" for both flags
func (d FontDecorations) String() string {
	var b strings.Builder
	for _, dc := range decorationCodes {
		if d.Has(dc.flag) {
			b.WriteByte(dc.code)
		}
	}
	return b.String()
}

// ParseFontDecorations is the inverse of String
func ParseFontDecorations(s string) (FontDecorations, error) {
	var d FontDecorations
	for i := 0; i < len(s); i++ {
		found := false
		for _, dc := range decorationCodes {
			if s[i] == dc.code {
				d |= dc.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFontDecoration, s)
		}
	}
	return d, nil
}

// MarshalText encodes the set as its String form
func (d FontDecorations) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the String form
func (d *FontDecorations) UnmarshalText(b []byte) error {
	parsed, err := ParseFontDecorations(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RotationFromSlider maps a slider fraction in [0, 1] to whole degrees
func RotationFromSlider(fraction float64) int {
	return int(math.Round(fraction * 360))
}

// OpacityPercent is the label shown next to an opacity control
func OpacityPercent(opacity float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(opacity*100)))
}
