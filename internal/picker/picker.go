package picker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

const pngMimeType = "image/png"

// ErrEmptyImage is returned for empty input
var ErrEmptyImage = errors.New("image is empty")

// Target says where a picked image goes
type Target int

const (
	TargetPicture Target = iota
	TargetWatermark
)

// String returns the target name
func (t Target) String() string {
	if t == TargetWatermark {
		return "watermark"
	}
	return "picture"
}

// Import decodes an image in any format imaging understands, applies EXIF orientation
// and re-encodes it as PNG under a fresh "<uuid>.png" name.
func Import(r io.Reader) (domain.ImagePayload, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return domain.ImagePayload{}, ErrEmptyImage
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return domain.ImagePayload{}, fmt.Errorf("failed to encode png: %w", err)
	}

	return domain.ImagePayload{
		Data:     buf.Bytes(),
		MimeType: pngMimeType,
		Name:     uuid.NewString() + ".png",
	}, nil
}

// ImportFile is Import for a file on disk
func ImportFile(path string) (domain.ImagePayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Import(f)
}

// Preview returns a PNG scaled down to fit within maxSize x maxSize, for display only.
// Images already small enough are re-encoded at their own size.
func Preview(data []byte, maxSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if maxSize > 0 {
		b := img.Bounds()
		if b.Dx() > maxSize || b.Dy() > maxSize {
			img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
		}
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
