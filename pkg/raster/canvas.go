// Package raster draws annotation primitives onto a straight-alpha RGBA
// buffer. Every write is a source-over composite against the existing
// pixel; nothing is anti-aliased beyond what the hit tests produce.
package raster

import (
	"image"
	"image/color"
	"math"
)

// Point is a position in pixel space.
type Point struct {
	X, Y float64
}

// Canvas is a render target that owns its pixel buffer for the duration of
// a render.
type Canvas struct {
	img  *image.NRGBA
	w, h int
}

// New wraps img. Drawing mutates img in place.
func New(img *image.NRGBA) *Canvas {
	b := img.Bounds()
	return &Canvas{img: img, w: b.Dx(), h: b.Dy()}
}

// Image returns the underlying buffer.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.w }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.h }

// At returns the straight-alpha pixel at (x, y). Out of range reads return
// transparent black.
func (c *Canvas) At(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return color.NRGBA{}
	}
	i := c.img.PixOffset(c.img.Rect.Min.X+x, c.img.Rect.Min.Y+y)
	p := c.img.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Blend composites src over the pixel at (x, y). Out of range writes are
// ignored.
func (c *Canvas) Blend(x, y int, src color.NRGBA) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h || src.A == 0 {
		return
	}
	i := c.img.PixOffset(c.img.Rect.Min.X+x, c.img.Rect.Min.Y+y)
	p := c.img.Pix[i : i+4 : i+4]
	out := Over(color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}, src)
	p[0], p[1], p[2], p[3] = out.R, out.G, out.B, out.A
}

// Over is straight-alpha source-over: color channels are interpolated by
// the source alpha and coverage accumulates as a + d*(1-a).
func Over(dst, src color.NRGBA) color.NRGBA {
	a := float64(src.A) / 255
	if a <= 0 {
		return dst
	}
	inv := 1 - a
	mix := func(d, s uint8) uint8 {
		return clampByte(float64(d)*inv + float64(s)*a)
	}
	return color.NRGBA{
		R: mix(dst.R, src.R),
		G: mix(dst.G, src.G),
		B: mix(dst.B, src.B),
		A: clampByte(float64(src.A) + float64(dst.A)*inv),
	}
}

func clampByte(f float64) uint8 {
	f = math.Round(f)
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
