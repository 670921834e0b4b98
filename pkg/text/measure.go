// Package text provides the fixed 8x8 bitmap font used for annotation
// labels and the metrics needed to lay it out.
package text

import (
	"strings"
	"unicode/utf8"
)

// GlyphSize is the width and height of an unscaled glyph in pixels.
const GlyphSize = 8

// Glyph returns the bitmap for r, falling back to '?' for runes outside
// the basic table.
func Glyph(r rune) [8]byte {
	if r >= 0 && r < rune(len(basic)) {
		return basic[r]
	}
	return basic['?']
}

// Advance is the horizontal distance between glyph origins at scale.
func Advance(scale int) int {
	return GlyphSize * max(scale, 1)
}

// Bounds returns the box covered by s drawn at (x, y) with the given
// integer scale. Lines are split on '\n'; width is the longest line.
func Bounds(x, y int, s string, scale int) (x0, y0, x1, y1 int) {
	lines := strings.Split(s, "\n")
	widest := 0
	for _, line := range lines {
		widest = max(widest, utf8.RuneCountInString(line))
	}
	step := Advance(scale)
	return x, y, x + widest*step, y + max(len(lines), 1)*step
}
