package domain

import (
	"context"
	"fmt"
	"strings"
)

// ImagePayload is an encoded image together with the metadata needed to upload it
type ImagePayload struct {
	Data     []byte
	MimeType string
	Name     string
}

// IsEmpty reports whether the payload carries no image bytes
func (p ImagePayload) IsEmpty() bool {
	return len(p.Data) == 0
}

// Mode selects which kind of watermark a request applies
type Mode int

const (
	ModeText Mode = iota
	ModeCustom
)

// String returns "text" or "custom"
func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeCustom:
		return "custom"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "text" or "custom" into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText, nil
	case "custom":
		return ModeCustom, nil
	default:
		return ModeText, fmt.Errorf("unknown watermark mode %q", s)
	}
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name with ParseMode
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// TextWatermarkParams holds the parameters of a text watermark request.
// Nil optional fields are left out of the request entirely.
type TextWatermarkParams struct {
	Text             string           `json:"text"`
	FontFamily       *string          `json:"font_family,omitempty"`
	FontSize         *int             `json:"font_size,omitempty"`
	DensityLevel     *DensityLevel    `json:"density_level,omitempty"`
	Color            *string          `json:"color,omitempty"`
	Opacity          *float64         `json:"opacity,omitempty"`
	RotationAngle    *int             `json:"rotation_angle,omitempty"`
	FontItalic       *bool            `json:"font_italic,omitempty"`
	FontWeight       *FontWeight      `json:"font_weight,omitempty"`
	ShadowOpacity    *float64         `json:"shadow_opacity,omitempty"`
	ShadowBlurRadius *int             `json:"shadow_blur_radius,omitempty"`
	ShadowOffsetX    *int             `json:"shadow_offset_x,omitempty"`
	ShadowOffsetY    *int             `json:"shadow_offset_y,omitempty"`
	ShadowColor      *string          `json:"shadow_color,omitempty"`
	FontDecorations  *FontDecorations `json:"font_decorations,omitempty"`
	StrokeColor      *string          `json:"stroke_color,omitempty"`
	StrokeOpacity    *float64         `json:"stroke_opacity,omitempty"`
}

// Clone returns a deep copy so that callers can keep editing their own value
func (p TextWatermarkParams) Clone() TextWatermarkParams {
	return TextWatermarkParams{
		Text:             p.Text,
		FontFamily:       clonePtr(p.FontFamily),
		FontSize:         clonePtr(p.FontSize),
		DensityLevel:     clonePtr(p.DensityLevel),
		Color:            clonePtr(p.Color),
		Opacity:          clonePtr(p.Opacity),
		RotationAngle:    clonePtr(p.RotationAngle),
		FontItalic:       clonePtr(p.FontItalic),
		FontWeight:       clonePtr(p.FontWeight),
		ShadowOpacity:    clonePtr(p.ShadowOpacity),
		ShadowBlurRadius: clonePtr(p.ShadowBlurRadius),
		ShadowOffsetX:    clonePtr(p.ShadowOffsetX),
		ShadowOffsetY:    clonePtr(p.ShadowOffsetY),
		ShadowColor:      clonePtr(p.ShadowColor),
		FontDecorations:  clonePtr(p.FontDecorations),
		StrokeColor:      clonePtr(p.StrokeColor),
		StrokeOpacity:    clonePtr(p.StrokeOpacity),
	}
}

// Validate checks the fields whose values are constrained by the watermarking service
func (p TextWatermarkParams) Validate() error {
	if p.DensityLevel != nil && !p.DensityLevel.Valid() {
		return ErrInvalidDensityLevel
	}
	if p.FontWeight != nil && !p.FontWeight.Valid() {
		return ErrInvalidFontWeight
	}
	for _, c := range []*string{p.Color, p.ShadowColor, p.StrokeColor} {
		if c == nil {
			continue
		}
		if _, err := NormalizeHex(*c); err != nil {
			return err
		}
	}
	for _, o := range []*float64{p.Opacity, p.ShadowOpacity, p.StrokeOpacity} {
		if o != nil && (*o < 0 || *o > 1) {
			return ErrInvalidOpacity
		}
	}
	return nil
}

// Normalized returns a copy with every color in the six lowercase digit form.
// Call it on validated parameters only.
func (p TextWatermarkParams) Normalized() TextWatermarkParams {
	n := p.Clone()
	for _, c := range []*string{n.Color, n.ShadowColor, n.StrokeColor} {
		if c == nil {
			continue
		}
		if hex, err := NormalizeHex(*c); err == nil {
			*c = hex
		}
	}
	return n
}

// CustomWatermarkParams holds the parameters of an image watermark request
type CustomWatermarkParams struct {
	Watermark     ImagePayload  `json:"-"`
	Opacity       *float64      `json:"opacity,omitempty"`
	RotationAngle *int          `json:"rotation_angle,omitempty"`
	DensityLevel  *DensityLevel `json:"density_level,omitempty"`
}

// Clone returns a deep copy of the optional fields; the watermark payload is shared
func (p CustomWatermarkParams) Clone() CustomWatermarkParams {
	return CustomWatermarkParams{
		Watermark:     p.Watermark,
		Opacity:       clonePtr(p.Opacity),
		RotationAngle: clonePtr(p.RotationAngle),
		DensityLevel:  clonePtr(p.DensityLevel),
	}
}

// Validate checks the fields whose values are constrained by the watermarking service
func (p CustomWatermarkParams) Validate() error {
	if p.DensityLevel != nil && !p.DensityLevel.Valid() {
		return ErrInvalidDensityLevel
	}
	if p.Opacity != nil && (*p.Opacity < 0 || *p.Opacity > 1) {
		return ErrInvalidOpacity
	}
	return nil
}

// WatermarkService defines the operations of the remote watermarking service
type WatermarkService interface {
	// ProcessText renders a text watermark onto picture and returns the resulting image bytes
	ProcessText(ctx context.Context, picture ImagePayload, params TextWatermarkParams) ([]byte, error)

	// ProcessCustom renders params.Watermark onto picture and returns the resulting image bytes
	ProcessCustom(ctx context.Context, picture ImagePayload, params CustomWatermarkParams) ([]byte, error)
}

// Ptr returns a pointer to v, for filling optional parameters
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
