package main

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

func parse(t *testing.T, args ...string) (*watermarkFlags, map[string]bool) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := registerWatermarkFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f, visited(fs)
}

func TestApplyTextOnlyTouchesPassedFlags(t *testing.T) {
	f, set := parse(t, "-size", "48", "-decorations", "tu", "-italic", "-shadow-x", "-3")

	p := domain.TextWatermarkParams{Text: "x"}
	if err := f.applyText(set, &p); err != nil {
		t.Fatalf("applyText: %v", err)
	}
	if *p.FontSize != 48 || p.FontDecorations.String() != "ut" || !*p.FontItalic || *p.ShadowOffsetX != -3 {
		t.Errorf("params = %+v", p)
	}
	if p.Color != nil || p.Opacity != nil || p.DensityLevel != nil || p.FontFamily != nil {
		t.Error("unpassed flags produced values")
	}
}

func TestApplyTextZeroValuesArePresent(t *testing.T) {
	f, set := parse(t, "-opacity", "0", "-rotation", "0")
	p := domain.TextWatermarkParams{Text: "x"}
	if err := f.applyText(set, &p); err != nil {
		t.Fatal(err)
	}
	if p.Opacity == nil || *p.Opacity != 0 || p.RotationAngle == nil {
		t.Errorf("explicit zeros dropped: %+v", p)
	}
}

func TestApplyTextRejectsInvalid(t *testing.T) {
	cases := []struct {
		args []string
		want error
	}{
		{[]string{"-density", "6"}, domain.ErrInvalidDensityLevel},
		{[]string{"-weight", "950"}, domain.ErrInvalidFontWeight},
		{[]string{"-decorations", "x"}, domain.ErrInvalidFontDecoration},
		{[]string{"-color", "zzzzzz"}, domain.ErrInvalidColor},
		{[]string{"-stroke-opacity", "1.5"}, domain.ErrInvalidOpacity},
	}
	for _, c := range cases {
		f, set := parse(t, c.args...)
		p := domain.TextWatermarkParams{Text: "x"}
		if err := f.applyText(set, &p); !errors.Is(err, c.want) {
			t.Errorf("%v: error = %v, want %v", c.args, err, c.want)
		}
	}

	f, set := parse(t, "-font", "Comic Sans")
	if err := f.applyText(set, &domain.TextWatermarkParams{}); err == nil {
		t.Error("unsupported font accepted")
	}
}

func TestApplyCustom(t *testing.T) {
	f, set := parse(t, "-opacity", "0.3", "-density", "2", "-size", "99")
	p := domain.DefaultCustomParams()
	if err := f.applyCustom(set, &p); err != nil {
		t.Fatal(err)
	}
	if *p.Opacity != 0.3 || *p.DensityLevel != domain.DensityLow || *p.RotationAngle != 0 {
		t.Errorf("params = %+v", p)
	}
}
