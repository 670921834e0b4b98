package annotate

import (
	"image/color"
	"math"

	"vizloop/pkg/raster"
	"vizloop/pkg/text"
	"vizloop/pkg/units"
)

func drawSpotlight(c *raster.Canvas, s *Spotlight) {
	pad := s.Padding * s.Scale
	radius := s.Radius * s.Scale
	x := deref(s.X, 0) - pad
	y := deref(s.Y, 0) - pad
	w := deref(s.W, 0) + pad*2
	h := deref(s.H, 0) + pad*2
	c.DimOutside(
		int(math.Floor(x)), int(math.Floor(y)),
		int(math.Ceil(x+w)), int(math.Ceil(y+h)),
		radius, s.Color,
	)
}

func drawRect(c *raster.Canvas, r *Rect) {
	x, y := deref(r.X, 0), deref(r.Y, 0)
	w, h := deref(r.W, 0), deref(r.H, 0)
	if w <= 0 || h <= 0 {
		return
	}
	if r.Fill != nil {
		c.FillRect(round(x), round(y), round(x+w), round(y+h), *r.Fill)
	}

	width := r.Width
	if width == 0 {
		width = units.ScaleDefault(3, r.Scale, 2)
	}
	ow := r.OutlineWidth
	if ow == 0 {
		ow = max(round(float64(width)*0.6), 2)
	}

	xu, yu := round(math.Max(x, 0)), round(math.Max(y, 0))
	wu, hu := round(math.Max(w, 1)), round(math.Max(h, 1))
	if r.Outline {
		c.StrokeRect(xu, yu, wu, hu, width+ow*2, outlineColor(r.OutlineColor, r.Color))
	}
	c.StrokeRect(xu, yu, wu, hu, width, r.Color)
}

func drawArrow(c *raster.Canvas, a *Arrow) {
	x1, y1 := deref(a.X1, 0), deref(a.Y1, 0)
	x2, y2 := deref(a.X2, 0), deref(a.Y2, 0)

	width := math.Max(derefScaled(a.Width, 3, a.Scale, 2), 1)
	headLen := math.Max(derefScaled(a.HeadLen, 12, a.Scale, 6), 2)
	headWidth := math.Max(derefScaled(a.HeadWidth, 8, a.Scale, 5), 2)

	if a.Outline {
		ow := math.Max(deref(a.OutlineWidth, math.Max(math.Round(width*0.6), 2)), 1)
		c.Arrow(x1, y1, x2, y2, outlineColor(a.OutlineColor, a.Color),
			width+ow*2, headLen+ow*2, headWidth+ow*2)
	}
	c.Arrow(x1, y1, x2, y2, a.Color, width, headLen, headWidth)
}

func drawText(c *raster.Canvas, t *Text) {
	if t.Content == "" {
		return
	}
	x, y := round(deref(t.X, 0)), round(deref(t.Y, 0))

	size := t.Size
	if size == 0 {
		size = units.ScaleDefault(14, t.Scale, 10)
	}
	glyphScale := max(round(float64(size)/8), 1)

	if t.Background != nil {
		pad := units.ScaleDefault(4, t.Scale, 2)
		if t.Padding != nil {
			pad = *t.Padding
		}
		x0, y0, x1, y1 := text.Bounds(x, y, t.Content, glyphScale)
		c.FillRect(x0-pad, y0-pad, x1+pad, y1+pad, *t.Background)
	}

	if !t.Outline {
		c.Text(x, y, t.Content, t.Color, glyphScale)
		return
	}
	ow := t.OutlineWidth
	if ow == 0 {
		ow = max(round(float64(size)*0.12), 1)
	}
	c.OutlinedText(x, y, t.Content, t.Color, outlineColor(t.OutlineColor, t.Color), glyphScale, ow)
}

func derefScaled(p *float64, value, scale float64, floor int) float64 {
	if p != nil {
		return *p
	}
	return float64(units.ScaleDefault(value, scale, floor))
}

func outlineColor(explicit *color.NRGBA, stroke color.NRGBA) color.NRGBA {
	if explicit != nil {
		return *explicit
	}
	return units.OutlineFor(stroke)
}

func round(v float64) int {
	return int(math.Round(v))
}
