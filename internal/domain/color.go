package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned for colors that are not six hex digits
var ErrInvalidColor = errors.New("color must be six hex digits")

// RGBToHex converts float RGB components in [0, 1] into a lowercase six digit hex string.
// Each component is quantized with round(c*255); alpha is not represented.
func RGBToHex(r, g, b float64) string {
	c := colorful.Color{R: r, G: g, B: b}.Clamped()
	return strings.TrimPrefix(c.Hex(), "#")
}

// HexToRGB parses a six digit hex color, with or without a leading '#'
func HexToRGB(hex string) (r, g, b float64, err error) {
	normalized, err := NormalizeHex(hex)
	if err != nil {
		return 0, 0, 0, err
	}
	c, err := colorful.Hex("#" + normalized)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidColor, err)
	}
	return c.R, c.G, c.B, nil
}

// NormalizeHex validates hex and returns it lowercased without a leading '#'
func NormalizeHex(hex string) (string, error) {
	s := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hex), "#"))
	if len(s) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, hex)
		}
	}
	return s, nil
}
