package watermarkapi

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

const (
	fieldPicture          = "picture"
	fieldWatermark        = "watermark"
	fieldText             = "text"
	fieldFontSize         = "font_size"
	fieldFontFamily       = "font_family"
	fieldDensityLevel     = "density_level"
	fieldColor            = "color"
	fieldOpacity          = "opacity"
	fieldRotationAngle    = "rotation_angle"
	fieldFontItalic       = "font_italic"
	fieldFontWeight       = "font_weight"
	fieldShadowOpacity    = "shadow_opacity"
	fieldShadowBlurRadius = "shadow_blur_radius"
	fieldShadowOffsetX    = "shadow_offset_x"
	fieldShadowOffsetY    = "shadow_offset_y"
	fieldShadowColor      = "shadow_color"
	fieldFontDecorations  = "font_decorations"
	fieldStrokeColor      = "stroke_color"
	fieldStrokeOpacity    = "stroke_opacity"

	defaultMimeType = "application/octet-stream"

	maxBoundaryAttempts = 8
)

var errBoundaryCollision = errors.New("could not generate a boundary absent from the payload")

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// part is either a text field or, when file is set, a file field
type part struct {
	name  string
	value string
	file  *domain.ImagePayload
}

// form is an ordered list of multipart parts; parts are written in the order they were added
type form struct {
	parts []part
}

func (f *form) addFile(name string, payload domain.ImagePayload) {
	f.parts = append(f.parts, part{name: name, file: &payload})
}

func (f *form) addField(name, value string) {
	f.parts = append(f.parts, part{name: name, value: value})
}

// addOptional adds a text field only when v is set
func addOptional[T any](f *form, name string, v *T, format func(T) string) {
	if v == nil {
		return
	}
	f.addField(name, format(*v))
}

func textWatermarkForm(picture domain.ImagePayload, p domain.TextWatermarkParams) *form {
	f := &form{}
	f.addFile(fieldPicture, picture)
	f.addField(fieldText, p.Text)

	addOptional(f, fieldFontSize, p.FontSize, strconv.Itoa)
	addOptional(f, fieldFontFamily, p.FontFamily, formatString)
	addOptional(f, fieldDensityLevel, p.DensityLevel, formatDensityLevel)
	addOptional(f, fieldColor, p.Color, formatString)
	addOptional(f, fieldOpacity, p.Opacity, formatFloat)
	addOptional(f, fieldRotationAngle, p.RotationAngle, strconv.Itoa)
	addOptional(f, fieldFontItalic, p.FontItalic, strconv.FormatBool)
	addOptional(f, fieldFontWeight, p.FontWeight, formatFontWeight)
	addOptional(f, fieldShadowOpacity, p.ShadowOpacity, formatFloat)
	addOptional(f, fieldShadowBlurRadius, p.ShadowBlurRadius, strconv.Itoa)
	addOptional(f, fieldShadowOffsetX, p.ShadowOffsetX, strconv.Itoa)
	addOptional(f, fieldShadowOffsetY, p.ShadowOffsetY, strconv.Itoa)
	addOptional(f, fieldShadowColor, p.ShadowColor, formatString)
	addOptional(f, fieldFontDecorations, p.FontDecorations, domain.FontDecorations.String)
	addOptional(f, fieldStrokeColor, p.StrokeColor, formatString)
	addOptional(f, fieldStrokeOpacity, p.StrokeOpacity, formatFloat)

	return f
}

func customWatermarkForm(picture domain.ImagePayload, p domain.CustomWatermarkParams) *form {
	f := &form{}
	f.addFile(fieldPicture, picture)
	f.addFile(fieldWatermark, p.Watermark)

	addOptional(f, fieldOpacity, p.Opacity, formatFloat)
	addOptional(f, fieldRotationAngle, p.RotationAngle, strconv.Itoa)
	addOptional(f, fieldDensityLevel, p.DensityLevel, formatDensityLevel)

	return f
}

// encode writes the form as multipart/form-data and returns the body and its Content-Type
func (f *form) encode() ([]byte, string, error) {
	boundary, err := f.boundary()
	if err != nil {
		return nil, "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("failed to set boundary: %w", err)
	}

	for _, p := range f.parts {
		if p.file == nil {
			if err := writer.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("failed to write %s: %w", p.name, err)
			}
			continue
		}

		mimeType := p.file.MimeType
		if mimeType == "" {
			mimeType = defaultMimeType
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.name), quoteEscaper.Replace(p.file.Name)))
		h.Set("Content-Type", mimeType)

		w, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create %s part: %w", p.name, err)
		}
		if _, err := w.Write(p.file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close writer: %w", err)
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}

// boundary returns a fresh token that occurs in no field value, file name or file payload
func (f *form) boundary() (string, error) {
	for i := 0; i < maxBoundaryAttempts; i++ {
		candidate := "Boundary-" + uuid.NewString()
		if !f.contains(candidate) {
			return candidate, nil
		}
	}
	return "", errBoundaryCollision
}

func (f *form) contains(token string) bool {
	t := []byte(token)
	for _, p := range f.parts {
		if strings.Contains(p.value, token) {
			return true
		}
		if p.file != nil && (bytes.Contains(p.file.Data, t) || strings.Contains(p.file.Name, token)) {
			return true
		}
	}
	return false
}

func formatString(s string) string {
	return s
}

// formatFloat prints the shortest decimal that round-trips, always with a fractional
// part, so 1 is sent as "1.0" and 0.25 as "0.25"
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatDensityLevel(d domain.DensityLevel) string {
	return strconv.Itoa(int(d))
}

func formatFontWeight(w domain.FontWeight) string {
	return strconv.Itoa(int(w))
}
