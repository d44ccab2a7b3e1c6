package render

import (
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/passportpix/passportpix/internal/domain"
)

var (
	// ErrRenderSurface reports that the target canvas could not be
	// acquired for the requested region.
	ErrRenderSurface = errors.New("render surface unavailable")

	// ErrDecode reports an unreadable upload.
	ErrDecode = errors.New("unreadable source image")
)

// Renderer maps a source image and a crop region onto a fixed-size
// canvas. The crop rectangle's center lands on the canvas center, the
// rectangle is rotated about its own center, and width/height are
// scaled independently to exactly fill the target. The caller keeps
// the selection inside source bounds; out-of-bounds regions produce
// undefined pixel content, not an error.
type Renderer struct {
	TargetWidth   int
	TargetHeight  int
	WatermarkText string
}

func New(targetWidth, targetHeight int) *Renderer {
	return &Renderer{
		TargetWidth:   targetWidth,
		TargetHeight:  targetHeight,
		WatermarkText: "PREVIEW",
	}
}

// Render produces the full-fidelity, unmarked raster.
func (r *Renderer) Render(src image.Image, region domain.CropRegion) (*image.RGBA, error) {
	if r.TargetWidth <= 0 || r.TargetHeight <= 0 {
		return nil, ErrRenderSurface
	}
	if err := region.Validate(); err != nil {
		return nil, ErrRenderSurface
	}
	region = region.Normalized()

	dst := image.NewRGBA(image.Rect(0, 0, r.TargetWidth, r.TargetHeight))
	draw.BiLinear.Transform(dst, r.matrix(region), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// RenderPreview produces the same framing with the diagonal watermark
// overlay. Never suitable as the final deliverable.
func (r *Renderer) RenderPreview(src image.Image, region domain.CropRegion) (*image.RGBA, error) {
	dst, err := r.Render(src, region)
	if err != nil {
		return nil, err
	}
	r.overlayWatermark(dst)
	return dst, nil
}

// matrix composes translate-to-center, rotate-about-crop-center and
// anisotropic scale into a single source-to-canvas affine transform.
// Zero rotation degenerates to a pure scale+translate through the same
// path.
func (r *Renderer) matrix(region domain.CropRegion) f64.Aff3 {
	sx := float64(r.TargetWidth) / region.Width
	sy := float64(r.TargetHeight) / region.Height

	theta := region.Rotation * math.Pi / 180
	cos := math.Cos(theta)
	sin := math.Sin(theta)

	// Scale(sx, sy) * Rotate(theta), y-down coordinates so positive
	// angles read clockwise on screen.
	a := sx * cos
	b := -sx * sin
	d := sy * sin
	e := sy * cos

	cx, cy := region.Center()
	tx := float64(r.TargetWidth) / 2
	ty := float64(r.TargetHeight) / 2

	return f64.Aff3{
		a, b, tx - a*cx - b*cy,
		d, e, ty - d*cx - e*cy,
	}
}
