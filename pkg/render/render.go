// Package render draws the review images produced by a diff: the red
// heatmap overlay, plain region boxes, and a side-by-side review sheet.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"vizloop/pkg/images"
	"vizloop/pkg/raster"
	"vizloop/pkg/regions"
)

// BoxColor and BoxThickness are used for region outlines.
var BoxColor = color.NRGBA{R: 255, G: 69, B: 58, A: 255}

const BoxThickness = 3

// Heatmap blends every changed pixel of current toward pure red in
// proportion to its delta. Alpha is kept from current.
func Heatmap(current *image.NRGBA, d *regions.DeltaMap) *image.NRGBA {
	out := images.ToNRGBA(current)
	if d == nil {
		return out
	}
	w := min(d.Width, out.Rect.Dx())
	h := min(d.Height, out.Rect.Dy())
	for y := 0; y < h; y++ {
		row := out.PixOffset(0, y)
		for x := 0; x < w; x++ {
			v := d.At(x, y)
			if v == 0 {
				continue
			}
			a := float32(v) / 255
			p := out.Pix[row+x*4 : row+x*4+3 : row+x*4+3]
			p[0] = blend32(p[0], 255, a)
			p[1] = blend32(p[1], 0, a)
			p[2] = blend32(p[2], 0, a)
		}
	}
	return out
}

// blend32 mixes in single precision.
func blend32(base, target uint8, a float32) uint8 {
	return uint8(math.Round(float64((1-a)*float32(base) + a*float32(target))))
}

// Boxes outlines each region on a copy of current.
func Boxes(current *image.NRGBA, rs []regions.ChangeRegion) *image.NRGBA {
	out := images.ToNRGBA(current)
	c := raster.New(out)
	for _, r := range rs {
		c.StrokeRect(r.X, r.Y, r.W, r.H, BoxThickness, BoxColor)
	}
	return out
}

const (
	sheetGap    = 12
	sheetHeader = 24
)

// Renderer lays out review sheets.
type Renderer struct {
	context *gg.Context
}

// NewRenderer creates a sheet canvas for panels of the given size.
func NewRenderer(panelWidth, panelHeight, panels int) *Renderer {
	w := panels*panelWidth + (panels+1)*sheetGap
	h := panelHeight + sheetHeader + 2*sheetGap
	return &Renderer{context: gg.NewContext(w, h)}
}

// Panel is one labelled image on a sheet.
type Panel struct {
	Label string
	Image image.Image
}

// Sheet places the panels left to right under their labels and outlines
// rs on every panel after the first. Panels should share one size.
func Sheet(panels []Panel, rs []regions.ChangeRegion) image.Image {
	if len(panels) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	b := panels[0].Image.Bounds()
	r := NewRenderer(b.Dx(), b.Dy(), len(panels))
	r.Render(panels, rs)
	return r.context.Image()
}

// Render draws the sheet.
func (r *Renderer) Render(panels []Panel, rs []regions.ChangeRegion) {
	dc := r.context
	dc.SetRGB(0.12, 0.12, 0.14)
	dc.Clear()

	x := float64(sheetGap)
	top := float64(sheetGap + sheetHeader)
	for i, p := range panels {
		b := p.Image.Bounds()
		dc.SetRGB(0.92, 0.92, 0.92)
		dc.DrawString(p.Label, x, top-8)
		dc.DrawImage(p.Image, int(x), int(top))

		if i > 0 {
			r.drawRegions(x, top, rs)
		}
		x += float64(b.Dx() + sheetGap)
	}
}

func (r *Renderer) drawRegions(ox, oy float64, rs []regions.ChangeRegion) {
	dc := r.context
	dc.SetLineWidth(2)
	for i, reg := range rs {
		dc.SetRGBA(float64(BoxColor.R)/255, float64(BoxColor.G)/255, float64(BoxColor.B)/255, 1)
		dc.DrawRectangle(ox+float64(reg.X), oy+float64(reg.Y), float64(reg.W), float64(reg.H))
		dc.Stroke()

		label := fmt.Sprintf("%d", i+1)
		lw, lh := dc.MeasureString(label)
		dc.DrawRectangle(ox+float64(reg.X), oy+float64(reg.Y)-lh-4, lw+6, lh+4)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawString(label, ox+float64(reg.X)+3, oy+float64(reg.Y)-3)
	}
}

// SavePNG writes the sheet.
func (r *Renderer) SavePNG(filename string) error {
	return images.SavePNG(filename, r.context.Image())
}
