package domain_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

func TestRGBToHex(t *testing.T) {
	cases := []struct {
		r, g, b float64
		want    string
	}{
		{0, 0, 0, "000000"},
		{1, 1, 1, "ffffff"},
		{1, 0, 0, "ff0000"},
		{0, 0, 1.0 / 255, "000001"},
		{0.5, 0.5, 0.5, "808080"},
		{-0.2, 1.3, 0, "00ff00"},
	}
	for _, c := range cases {
		if got := domain.RGBToHex(c.r, c.g, c.b); got != c.want {
			t.Errorf("RGBToHex(%v, %v, %v) = %q, want %q", c.r, c.g, c.b, got, c.want)
		}
	}
}

func TestHexToRGB(t *testing.T) {
	r, g, b, err := domain.HexToRGB("#FF8000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r-1) > 1e-9 || math.Abs(g-128.0/255) > 1e-9 || math.Abs(b) > 1e-9 {
		t.Errorf("HexToRGB(#FF8000) = %v, %v, %v", r, g, b)
	}

	for _, bad := range []string{"", "fff", "12345", "1234567", "gg0000", "#12 456"} {
		if _, _, _, err := domain.HexToRGB(bad); !errors.Is(err, domain.ErrInvalidColor) {
			t.Errorf("HexToRGB(%q) error = %v, want ErrInvalidColor", bad, err)
		}
	}
}

func TestColorRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const quantum = 0.5/255 + 1e-9
	for i := 0; i < 2000; i++ {
		r, g, b := rng.Float64(), rng.Float64(), rng.Float64()
		hex := domain.RGBToHex(r, g, b)
		r2, g2, b2, err := domain.HexToRGB(hex)
		if err != nil {
			t.Fatalf("HexToRGB(%q) unexpected error: %v", hex, err)
		}
		if math.Abs(r-r2) > quantum || math.Abs(g-g2) > quantum || math.Abs(b-b2) > quantum {
			t.Fatalf("(%v, %v, %v) -> %q -> (%v, %v, %v) exceeds 8-bit quantization", r, g, b, hex, r2, g2, b2)
		}
		if again := domain.RGBToHex(r2, g2, b2); again != hex {
			t.Fatalf("round trip not idempotent: %q -> %q", hex, again)
		}
	}
}
