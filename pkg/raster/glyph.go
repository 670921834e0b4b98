package raster

import (
	"image/color"

	"vizloop/pkg/text"
)

// Text blits s with the 8x8 bitmap font, each glyph pixel expanded to a
// scale by scale block. A newline returns the cursor to x without
// advancing the line.
func (c *Canvas) Text(x, y int, s string, col color.NRGBA, scale int) {
	scale = max(scale, 1)
	cursor := x
	for _, r := range s {
		if r == '\n' {
			cursor = x
			continue
		}
		glyph := text.Glyph(r)
		for row, bits := range glyph {
			for col8 := 0; col8 < text.GlyphSize; col8++ {
				if (bits>>col8)&1 == 0 {
					continue
				}
				px := cursor + col8*scale
				py := y + row*scale
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						c.Blend(px+sx, py+sy, col)
					}
				}
			}
		}
		cursor += text.Advance(scale)
	}
}

// OutlinedText stamps s in outline at every offset within radius of
// (x, y), excluding the center, then draws s in fill on top.
func (c *Canvas) OutlinedText(x, y int, s string, fill, outline color.NRGBA, scale, radius int) {
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			c.Text(x+dx, y+dy, s, outline, scale)
		}
	}
	c.Text(x, y, s, fill, scale)
}
