package picker_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/picker"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestImportNormalizesToPNG(t *testing.T) {
	payload, err := picker.Import(bytes.NewReader(makeJPEG(t, 40, 30)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if payload.MimeType != "image/png" {
		t.Errorf("mime = %q", payload.MimeType)
	}
	if !strings.HasSuffix(payload.Name, ".png") || len(payload.Name) != len("00000000-0000-0000-0000-000000000000.png") {
		t.Errorf("name = %q", payload.Name)
	}
	img, err := png.Decode(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("result is not png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("bounds = %v", b)
	}

	other, err := picker.Import(bytes.NewReader(makeJPEG(t, 4, 4)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if other.Name == payload.Name {
		t.Error("two imports share a name")
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	if _, err := picker.Import(strings.NewReader("definitely not an image")); err == nil {
		t.Fatal("expected error")
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, makeJPEG(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := picker.ImportFile(path); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if _, err := picker.ImportFile(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPreviewFitsWithinBounds(t *testing.T) {
	preview, err := picker.Preview(makeJPEG(t, 400, 200), 100)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(preview))
	if err != nil {
		t.Fatalf("preview is not png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("preview bounds = %v, want 100x50", b)
	}

	small, err := picker.Preview(makeJPEG(t, 20, 10), 100)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img, _ = png.Decode(bytes.NewReader(small))
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("small preview bounds = %v, want 20x10", b)
	}

	if _, err := picker.Preview(nil, 100); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestCompletionResolvesOnce(t *testing.T) {
	c := picker.NewCompletion()
	first := domain.ImagePayload{Name: "first.png"}
	if !c.Resolve(first) {
		t.Fatal("first Resolve rejected")
	}
	if c.Resolve(domain.ImagePayload{Name: "second.png"}) {
		t.Error("second Resolve accepted")
	}
	if c.Dismiss() {
		t.Error("Dismiss after Resolve accepted")
	}

	got, ok := c.Wait(context.Background())
	if !ok || got.Name != "first.png" {
		t.Errorf("Wait = %+v, %v", got, ok)
	}
}

func TestCompletionDismiss(t *testing.T) {
	c := picker.NewCompletion()
	go c.Dismiss()
	if _, ok := c.Wait(context.Background()); ok {
		t.Error("Wait after Dismiss returned a value")
	}
	if c.Resolve(domain.ImagePayload{}) {
		t.Error("Resolve after Dismiss accepted")
	}
}

func TestCompletionWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := picker.NewCompletion().Wait(ctx); ok {
		t.Error("Wait returned a value without Resolve")
	}
}
