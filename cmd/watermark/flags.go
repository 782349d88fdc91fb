package main

import (
	"flag"
	"fmt"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// watermarkFlags holds the watermark options of the command line. Only flags the
// user actually passed are applied, so unset options keep the session defaults.
type watermarkFlags struct {
	fontFamily    string
	fontSize      int
	density       int
	color         string
	opacity       float64
	rotation      int
	italic        bool
	weight        int
	shadowOpacity float64
	shadowBlur    int
	shadowOffsetX int
	shadowOffsetY int
	shadowColor   string
	decorations   string
	strokeColor   string
	strokeOpacity float64
}

func registerWatermarkFlags(fs *flag.FlagSet) *watermarkFlags {
	f := &watermarkFlags{}
	fs.StringVar(&f.fontFamily, "font", "", "Font family (Roboto, Times New Roman)")
	fs.IntVar(&f.fontSize, "size", 0, "Font size")
	fs.IntVar(&f.density, "density", 0, "Density level 1-5")
	fs.StringVar(&f.color, "color", "", "Text color as rrggbb")
	fs.Float64Var(&f.opacity, "opacity", 0, "Opacity 0-1")
	fs.IntVar(&f.rotation, "rotation", 0, "Rotation angle in degrees")
	fs.BoolVar(&f.italic, "italic", false, "Italic text")
	fs.IntVar(&f.weight, "weight", 0, "Font weight 100-900")
	fs.Float64Var(&f.shadowOpacity, "shadow-opacity", 0, "Shadow opacity 0-1")
	fs.IntVar(&f.shadowBlur, "shadow-blur", 0, "Shadow blur radius")
	fs.IntVar(&f.shadowOffsetX, "shadow-x", 0, "Shadow horizontal offset")
	fs.IntVar(&f.shadowOffsetY, "shadow-y", 0, "Shadow vertical offset")
	fs.StringVar(&f.shadowColor, "shadow-color", "", "Shadow color as rrggbb")
	fs.StringVar(&f.decorations, "decorations", "", "Text decorations: u underline, t line-through")
	fs.StringVar(&f.strokeColor, "stroke-color", "", "Stroke color as rrggbb")
	fs.Float64Var(&f.strokeOpacity, "stroke-opacity", 0, "Stroke opacity 0-1")
	return f
}

// visited returns the names of the flags that were set on the command line
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
}

// applyText copies the passed text options into p
func (f *watermarkFlags) applyText(set map[string]bool, p *domain.TextWatermarkParams) error {
	if set["font"] {
		if !domain.IsSupportedFontFamily(f.fontFamily) {
			return fmt.Errorf("unsupported font family %q", f.fontFamily)
		}
		p.FontFamily = domain.Ptr(f.fontFamily)
	}
	if set["size"] {
		p.FontSize = domain.Ptr(f.fontSize)
	}
	if set["density"] {
		d, err := domain.NewDensityLevel(f.density)
		if err != nil {
			return err
		}
		p.DensityLevel = domain.Ptr(d)
	}
	if set["color"] {
		p.Color = domain.Ptr(f.color)
	}
	if set["opacity"] {
		p.Opacity = domain.Ptr(f.opacity)
	}
	if set["rotation"] {
		p.RotationAngle = domain.Ptr(f.rotation)
	}
	if set["italic"] {
		p.FontItalic = domain.Ptr(f.italic)
	}
	if set["weight"] {
		w, err := domain.NewFontWeight(f.weight)
		if err != nil {
			return err
		}
		p.FontWeight = domain.Ptr(w)
	}
	if set["shadow-opacity"] {
		p.ShadowOpacity = domain.Ptr(f.shadowOpacity)
	}
	if set["shadow-blur"] {
		p.ShadowBlurRadius = domain.Ptr(f.shadowBlur)
	}
	if set["shadow-x"] {
		p.ShadowOffsetX = domain.Ptr(f.shadowOffsetX)
	}
	if set["shadow-y"] {
		p.ShadowOffsetY = domain.Ptr(f.shadowOffsetY)
	}
	if set["shadow-color"] {
		p.ShadowColor = domain.Ptr(f.shadowColor)
	}
	if set["decorations"] {
		d, err := domain.ParseFontDecorations(f.decorations)
		if err != nil {
			return err
		}
		p.FontDecorations = domain.Ptr(d)
	}
	if set["stroke-color"] {
		p.StrokeColor = domain.Ptr(f.strokeColor)
	}
	if set["stroke-opacity"] {
		p.StrokeOpacity = domain.Ptr(f.strokeOpacity)
	}
	return p.Validate()
}

// applyCustom copies the options shared with image watermarks into p
func (f *watermarkFlags) applyCustom(set map[string]bool, p *domain.CustomWatermarkParams) error {
	if set["opacity"] {
		p.Opacity = domain.Ptr(f.opacity)
	}
	if set["rotation"] {
		p.RotationAngle = domain.Ptr(f.rotation)
	}
	if set["density"] {
		d, err := domain.NewDensityLevel(f.density)
		if err != nil {
			return err
		}
		p.DensityLevel = domain.Ptr(d)
	}
	return p.Validate()
}
