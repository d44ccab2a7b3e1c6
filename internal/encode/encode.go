package encode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

// Quality tiers. The gap between them is relied upon: the full encode
// must be large enough to likely satisfy the minimum-size rule, while
// the preview stays strictly smaller and is never the deliverable.
const (
	QualityFull    = 95
	QualityPreview = 70
)

const Format = "jpeg"

// ErrEmptyCanvas reports an empty or unreadable raster.
var ErrEmptyCanvas = errors.New("canvas is empty")

// Encoded is one compressed output plus everything the technical
// validator needs to judge it.
type Encoded struct {
	Bytes  []byte
	Width  int
	Height int
	Format string
}

func (e Encoded) Size() int {
	return len(e.Bytes)
}

// DataURI returns the portable textual representation used for
// transport and in-page display.
func (e Encoded) DataURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(e.Bytes)
}

// JPEG compresses img at the given quality.
func JPEG(img image.Image, quality int) (Encoded, error) {
	if img == nil {
		return Encoded{}, ErrEmptyCanvas
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return Encoded{}, ErrEmptyCanvas
	}
	if quality <= 0 || quality > 100 {
		quality = QualityFull
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Encoded{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Encoded{
		Bytes:  buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: Format,
	}, nil
}
