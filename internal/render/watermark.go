package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	watermarkOpacity    = 0.45
	watermarkAngleDeg   = -30
	watermarkSpanRatio  = 0.85
	watermarkOffsetFrac = 0.22
)

// overlayWatermark stamps the watermark text diagonally across dst,
// twice, at mirrored vertical offsets around the canvas center.
func (r *Renderer) overlayWatermark(dst *image.RGBA) {
	text := r.WatermarkText
	if text == "" {
		text = "PREVIEW"
	}
	layer := textLayer(text, watermarkOpacity)

	bounds := dst.Bounds()
	offset := float64(bounds.Dy()) * watermarkOffsetFrac
	stampRotated(dst, layer, -offset)
	stampRotated(dst, layer, offset)
}

// textLayer renders text once onto its own transparent raster; the
// stamp pass scales and rotates that raster instead of the glyphs.
func textLayer(text string, opacity float64) *image.RGBA {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Face: face}
	width := drawer.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	layer := image.NewRGBA(image.Rect(0, 0, width, height))
	alpha := uint8(math.Round(opacity * 255))
	drawer.Dst = layer
	drawer.Src = image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: alpha})
	drawer.Dot = fixed.P(0, ascent)
	drawer.DrawString(text)
	return layer
}

func stampRotated(dst *image.RGBA, layer *image.RGBA, yOffset float64) {
	bounds := dst.Bounds()
	scale := float64(bounds.Dx()) * watermarkSpanRatio / float64(layer.Bounds().Dx())

	theta := watermarkAngleDeg * math.Pi / 180
	cos := math.Cos(theta)
	sin := math.Sin(theta)

	a := scale * cos
	b := -scale * sin
	d := scale * sin
	e := scale * cos

	cx := float64(layer.Bounds().Dx()) / 2
	cy := float64(layer.Bounds().Dy()) / 2
	tx := float64(bounds.Dx()) / 2
	ty := float64(bounds.Dy())/2 + yOffset

	m := f64.Aff3{
		a, b, tx - a*cx - b*cy,
		d, e, ty - d*cx - e*cy,
	}
	draw.ApproxBiLinear.Transform(dst, m, layer, layer.Bounds(), draw.Over, nil)
}
