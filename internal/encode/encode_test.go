package encode

import (
	"errors"
	"image"
	"math/rand"
	"strings"
	"testing"
)

// noisySource defeats JPEG's flat-region compression so quality tiers
// produce measurably different sizes.
func noisySource(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	return img
}

func TestJPEGPreviewStrictlySmallerThanFull(t *testing.T) {
	src := noisySource(300, 400)

	full, err := JPEG(src, QualityFull)
	if err != nil {
		t.Fatalf("full encode: %v", err)
	}
	preview, err := JPEG(src, QualityPreview)
	if err != nil {
		t.Fatalf("preview encode: %v", err)
	}

	if preview.Size() >= full.Size() {
		t.Fatalf("expected preview < full, got preview=%d full=%d", preview.Size(), full.Size())
	}
	if full.Width != 300 || full.Height != 400 {
		t.Fatalf("expected 300x400 metadata, got %dx%d", full.Width, full.Height)
	}
	if full.Format != "jpeg" {
		t.Fatalf("expected jpeg format tag, got %q", full.Format)
	}
}

func TestJPEGDataURI(t *testing.T) {
	out, err := JPEG(noisySource(8, 8), QualityFull)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	uri := out.DataURI()
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected data URI prefix: %s", uri[:32])
	}
	if len(uri) <= len("data:image/jpeg;base64,") {
		t.Fatal("expected base64 payload in data URI")
	}
}

func TestJPEGRejectsEmptyCanvas(t *testing.T) {
	if _, err := JPEG(nil, QualityFull); !errors.Is(err, ErrEmptyCanvas) {
		t.Fatalf("expected ErrEmptyCanvas for nil, got %v", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := JPEG(empty, QualityFull); !errors.Is(err, ErrEmptyCanvas) {
		t.Fatalf("expected ErrEmptyCanvas for zero bounds, got %v", err)
	}
}
