package domain

import (
	"errors"
	"fmt"
	"math"
)

// CropRegion is a rectangle in source-image pixel coordinates plus a
// rotation angle in degrees, clockwise positive. The crop UI keeps the
// selection at 3:4 before it reaches the renderer; the renderer scales
// width and height independently regardless.
type CropRegion struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// Validate rejects non-positive rectangles. Whether the rectangle lies
// inside the source bounds is the caller's responsibility; Clamp is the
// tool for that.
func (r CropRegion) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("crop region must have positive dimensions, got %gx%g", r.Width, r.Height)
	}
	if math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsNaN(r.Rotation) {
		return errors.New("crop region contains NaN values")
	}
	return nil
}

// Normalized returns the region with rotation folded into [-180, 180].
func (r CropRegion) Normalized() CropRegion {
	angle := math.Mod(r.Rotation, 360)
	if angle > 180 {
		angle -= 360
	} else if angle < -180 {
		angle += 360
	}
	r.Rotation = angle
	return r
}

// Clamp shifts and shrinks the rectangle so it fits inside a
// srcWidth x srcHeight image. Rotation is left untouched.
func (r CropRegion) Clamp(srcWidth, srcHeight int) CropRegion {
	w := float64(srcWidth)
	h := float64(srcHeight)

	if r.Width > w {
		r.Width = w
	}
	if r.Height > h {
		r.Height = h
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > w {
		r.X = w - r.Width
	}
	if r.Y+r.Height > h {
		r.Y = h - r.Height
	}
	return r
}

// Center returns the rectangle's center point.
func (r CropRegion) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}
