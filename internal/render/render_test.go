package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/passportpix/passportpix/internal/domain"
)

func quadrantSource(w, h int) *image.RGBA {
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				src.Set(x, y, red)
			} else {
				src.Set(x, y, blue)
			}
		}
	}
	return src
}

func TestRenderAlwaysProducesTargetDimensions(t *testing.T) {
	r := New(1500, 2000)
	src := quadrantSource(2000, 2667)

	regions := []domain.CropRegion{
		{X: 100, Y: 100, Width: 1500, Height: 2000, Rotation: 0},
		{X: 0, Y: 0, Width: 300, Height: 400, Rotation: 45},
		{X: 500, Y: 600, Width: 750, Height: 1000, Rotation: -180},
		{X: 250, Y: 333, Width: 1500, Height: 2000, Rotation: 180},
		{X: 10, Y: 10, Width: 60, Height: 80, Rotation: -7.5},
	}
	for _, region := range regions {
		out, err := r.Render(src, region)
		if err != nil {
			t.Fatalf("render %+v: %v", region, err)
		}
		if out.Bounds().Dx() != 1500 || out.Bounds().Dy() != 2000 {
			t.Fatalf("render %+v: expected 1500x2000, got %dx%d",
				region, out.Bounds().Dx(), out.Bounds().Dy())
		}
	}
}

func TestRenderZeroRotationIsScaleTranslate(t *testing.T) {
	r := New(1500, 2000)
	src := quadrantSource(2000, 2667)

	// Crop entirely inside the red half.
	out, err := r.Render(src, domain.CropRegion{X: 0, Y: 0, Width: 600, Height: 800})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	cr, _, cb, _ := out.At(750, 1000).RGBA()
	if cr == 0 || cb != 0 {
		t.Fatalf("expected red center pixel, got r=%d b=%d", cr, cb)
	}
}

func TestRenderHalfTurnMirrorsSource(t *testing.T) {
	r := New(1500, 2000)
	src := quadrantSource(2000, 2667)

	out, err := r.Render(src, domain.CropRegion{X: 250, Y: 333, Width: 1500, Height: 2000, Rotation: 180})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	// The source's red left half lands on the canvas right half.
	cr, _, cb, _ := out.At(1200, 1000).RGBA()
	if cr == 0 || cb != 0 {
		t.Fatalf("expected red on right after half turn, got r=%d b=%d", cr, cb)
	}
}

func TestRenderRejectsDegenerateRegion(t *testing.T) {
	r := New(1500, 2000)
	src := quadrantSource(100, 100)

	if _, err := r.Render(src, domain.CropRegion{Width: 0, Height: 100}); !errors.Is(err, ErrRenderSurface) {
		t.Fatalf("expected ErrRenderSurface, got %v", err)
	}
	if _, err := New(0, 0).Render(src, domain.CropRegion{Width: 10, Height: 10}); !errors.Is(err, ErrRenderSurface) {
		t.Fatalf("expected ErrRenderSurface for zero target, got %v", err)
	}
}

func TestRenderPreviewCarriesOverlay(t *testing.T) {
	r := New(1500, 2000)
	src := quadrantSource(2000, 2667)
	region := domain.CropRegion{X: 100, Y: 100, Width: 1500, Height: 2000}

	full, err := r.Render(src, region)
	if err != nil {
		t.Fatalf("render full: %v", err)
	}
	preview, err := r.RenderPreview(src, region)
	if err != nil {
		t.Fatalf("render preview: %v", err)
	}

	if preview.Bounds() != full.Bounds() {
		t.Fatalf("preview framing differs: %v vs %v", preview.Bounds(), full.Bounds())
	}
	if bytes.Equal(full.Pix, preview.Pix) {
		t.Fatal("expected watermark overlay to change preview pixels")
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, quadrantSource(10, 10)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Fatalf("expected width 10, got %d", img.Bounds().Dx())
	}

	if _, err := Decode([]byte("not an image")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
