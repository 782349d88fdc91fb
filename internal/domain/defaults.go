package domain

// SupportedFontFamilies lists the font families the service can render
var SupportedFontFamilies = []string{
	"Roboto",
	"Times New Roman",
}

// FontSizes are the sizes offered to the user
var FontSizes = []int{8, 12, 16, 18, 24, 32, 36, 48, 64, 72}

// DefaultFontSize is the size preselected in font size lists
const DefaultFontSize = 12

// DefaultTextParams returns the parameters a new session starts with
func DefaultTextParams() TextWatermarkParams {
	return TextWatermarkParams{
		Text:             "",
		FontFamily:       Ptr(SupportedFontFamilies[0]),
		FontSize:         Ptr(24),
		DensityLevel:     Ptr(DensityMedium),
		Color:            Ptr("000000"),
		Opacity:          Ptr(1.0),
		RotationAngle:    Ptr(0),
		FontItalic:       Ptr(false),
		FontWeight:       Ptr(FontWeight400),
		ShadowOpacity:    Ptr(0.0),
		ShadowBlurRadius: Ptr(0),
		ShadowOffsetX:    Ptr(0),
		ShadowOffsetY:    Ptr(0),
		ShadowColor:      Ptr("000000"),
		FontDecorations:  Ptr(FontDecorations(0)),
		StrokeColor:      Ptr("000000"),
		StrokeOpacity:    Ptr(0.0),
	}
}

// DefaultCustomParams returns the image watermark parameters a new session starts with
func DefaultCustomParams() CustomWatermarkParams {
	return CustomWatermarkParams{
		Opacity:       Ptr(1.0),
		RotationAngle: Ptr(0),
		DensityLevel:  Ptr(DensityMedium),
	}
}

// IsSupportedFontFamily reports whether family is in SupportedFontFamilies
func IsSupportedFontFamily(family string) bool {
	for _, f := range SupportedFontFamilies {
		if f == family {
			return true
		}
	}
	return false
}
