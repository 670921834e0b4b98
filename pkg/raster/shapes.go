package raster

import (
	"image/color"
	"math"
)

// Disc fills every pixel whose integer position lies within radius of
// (cx, cy). Radii at or below 0.1 plot the single nearest pixel.
func (c *Canvas) Disc(cx, cy, radius float64, col color.NRGBA) {
	if c.w == 0 || c.h == 0 {
		return
	}
	if radius <= 0.1 {
		c.Blend(int(math.Round(cx)), int(math.Round(cy)), col)
		return
	}
	minX := clampInt(int(math.Floor(cx-radius)), 0, c.w-1)
	maxX := clampInt(int(math.Ceil(cx+radius)), 0, c.w-1)
	minY := clampInt(int(math.Floor(cy-radius)), 0, c.h-1)
	maxY := clampInt(int(math.Ceil(cy+radius)), 0, c.h-1)
	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy <= r2 {
				c.Blend(x, y, col)
			}
		}
	}
}

// ThickLine stamps discs of diameter width at unit steps from (x1, y1) to
// (x2, y2), both ends included.
func (c *Canvas) ThickLine(x1, y1, x2, y2, width float64, col color.NRGBA) {
	dx := x2 - x1
	dy := y2 - y1
	steps := int(math.Ceil(math.Max(math.Hypot(dx, dy), 1)))
	radius := math.Max(math.Max(width, 1)/2, 0.6)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.Disc(x1+dx*t, y1+dy*t, radius, col)
	}
}

func triangleArea(a, b, p Point) float64 {
	return math.Abs(a.X*(b.Y-p.Y)+b.X*(p.Y-a.Y)+p.X*(a.Y-b.Y)) / 2
}

// PointInTriangle tests p against triangle abc by comparing the sum of the
// three sub-triangle areas with the whole. Triangles with area <= eps
// contain nothing.
func PointInTriangle(p, a, b, t Point, eps float64) bool {
	total := triangleArea(a, b, t)
	if total <= eps {
		return false
	}
	sum := triangleArea(p, b, t) + triangleArea(a, p, t) + triangleArea(a, b, p)
	return math.Abs(sum-total) <= eps
}

// Triangle fills the pixels whose centers fall inside abc.
func (c *Canvas) Triangle(a, b, t Point, col color.NRGBA) {
	if c.w == 0 || c.h == 0 {
		return
	}
	minX := clampInt(int(math.Floor(math.Min(a.X, math.Min(b.X, t.X)))), 0, c.w-1)
	maxX := clampInt(int(math.Ceil(math.Max(a.X, math.Max(b.X, t.X)))), 0, c.w-1)
	minY := clampInt(int(math.Floor(math.Min(a.Y, math.Min(b.Y, t.Y)))), 0, c.h-1)
	maxY := clampInt(int(math.Ceil(math.Max(a.Y, math.Max(b.Y, t.Y)))), 0, c.h-1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			if PointInTriangle(p, a, b, t, 0.8) {
				c.Blend(x, y, col)
			}
		}
	}
}

// Arrow draws a shaft from (x1, y1) to a point headLen short of (x2, y2),
// then a filled head whose base is headWidth across.
func (c *Canvas) Arrow(x1, y1, x2, y2 float64, col color.NRGBA, width, headLen, headWidth float64) {
	angle := math.Atan2(y2-y1, x2-x1)
	back := Point{X: x2 - headLen*math.Cos(angle), Y: y2 - headLen*math.Sin(angle)}
	c.ThickLine(x1, y1, back.X, back.Y, width, col)

	half := headWidth / 2
	left := Point{
		X: back.X + half*math.Cos(angle+math.Pi/2),
		Y: back.Y + half*math.Sin(angle+math.Pi/2),
	}
	right := Point{
		X: back.X + half*math.Cos(angle-math.Pi/2),
		Y: back.Y + half*math.Sin(angle-math.Pi/2),
	}
	c.Triangle(Point{X: x2, Y: y2}, left, right, col)
}

// FillRect composites col over the inclusive pixel range between the two
// corners, clamped to the canvas.
func (c *Canvas) FillRect(x0, y0, x1, y1 int, col color.NRGBA) {
	if c.w == 0 || c.h == 0 {
		return
	}
	minX := clampInt(min(x0, x1), 0, c.w-1)
	maxX := clampInt(max(x0, x1), 0, c.w-1)
	minY := clampInt(min(y0, y1), 0, c.h-1)
	maxY := clampInt(max(y0, y1), 0, c.h-1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			c.Blend(x, y, col)
		}
	}
}

// StrokeRect draws a border-only frame around the w by h box at (x, y).
// The first ring is the box edge; each further ring of thickness grows
// outward by one pixel. Each pixel is composited once.
func (c *Canvas) StrokeRect(x, y, w, h, thickness int, col color.NRGBA) {
	if w <= 0 || h <= 0 || c.w == 0 || c.h == 0 {
		return
	}
	grow := max(thickness, 1) - 1
	bx0 := clampInt(x, 0, c.w-1)
	by0 := clampInt(y, 0, c.h-1)
	bx1 := clampInt(x+w-1, 0, c.w-1)
	by1 := clampInt(y+h-1, 0, c.h-1)

	ox0 := max(bx0-grow, 0)
	oy0 := max(by0-grow, 0)
	ox1 := min(bx1+grow, c.w-1)
	oy1 := min(by1+grow, c.h-1)
	for py := oy0; py <= oy1; py++ {
		for px := ox0; px <= ox1; px++ {
			if px > bx0 && px < bx1 && py > by0 && py < by1 {
				continue
			}
			c.Blend(px, py, col)
		}
	}
}

// InRoundedRect reports whether pixel (px, py) lies in the half-open box
// [x0,x1)x[y0,y1) with corners rounded by radius. The radius is limited
// to half the shorter side.
func InRoundedRect(px, py, x0, y0, x1, y1 int, radius float64) bool {
	if px < x0 || px >= x1 || py < y0 || py >= y1 {
		return false
	}
	if radius <= 0.1 {
		return true
	}
	r := math.Min(radius, math.Min(math.Abs(float64(x1-x0))/2, math.Abs(float64(y1-y0))/2))
	// Pixel centers keep the hole mirror-symmetric on the grid.
	fx, fy := float64(px)+0.5, float64(py)+0.5
	left, right := float64(x0), float64(x1)
	top, bottom := float64(y0), float64(y1)

	if (fx >= left+r && fx <= right-r) || (fy >= top+r && fy <= bottom-r) {
		return true
	}
	corners := [4]Point{
		{X: left + r, Y: top + r},
		{X: right - r, Y: top + r},
		{X: left + r, Y: bottom - r},
		{X: right - r, Y: bottom - r},
	}
	for _, k := range corners {
		dx := fx - k.X
		dy := fy - k.Y
		if dx*dx+dy*dy <= r*r {
			return true
		}
	}
	return false
}

// DimOutside composites col over every pixel outside the rounded hole
// [x0,x1)x[y0,y1). Pixels inside the hole are left untouched.
func (c *Canvas) DimOutside(x0, y0, x1, y1 int, radius float64, col color.NRGBA) {
	for py := 0; py < c.h; py++ {
		for px := 0; px < c.w; px++ {
			if InRoundedRect(px, py, x0, y0, x1, y1, radius) {
				continue
			}
			c.Blend(px, py, col)
		}
	}
}
