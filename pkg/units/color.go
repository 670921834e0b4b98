package units

import (
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ParseColor accepts #RRGGBB, #RRGGBBAA and rgba(r,g,b,a). The rgba alpha
// is a 0-1 fraction when <= 1, otherwise a 0-255 value.
func ParseColor(v any) (color.NRGBA, bool) {
	s, ok := String(v)
	if !ok {
		return color.NRGBA{}, false
	}
	if hex, found := strings.CutPrefix(s, "#"); found {
		return parseHex(hex)
	}
	lower := strings.ToLower(s)
	body, found := strings.CutPrefix(lower, "rgba(")
	if !found {
		return color.NRGBA{}, false
	}
	body, found = strings.CutSuffix(body, ")")
	if !found {
		return color.NRGBA{}, false
	}
	parts := strings.Split(body, ",")
	if len(parts) != 4 {
		return color.NRGBA{}, false
	}
	var ch [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		ch[i] = f
	}
	return color.NRGBA{
		R: clampByte(ch[0]),
		G: clampByte(ch[1]),
		B: clampByte(ch[2]),
		A: AlphaByte(ch[3]),
	}, true
}

// AlphaByte maps a 0-1 fraction or a 0-255 value to an alpha byte.
func AlphaByte(a float64) uint8 {
	if a <= 1 {
		return clampByte(a * 255)
	}
	return clampByte(a)
}

func parseHex(hex string) (color.NRGBA, bool) {
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, false
	}
	var b [4]uint8
	b[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return color.NRGBA{}, false
		}
		b[i] = uint8(n)
	}
	return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, true
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

// Luma is the Rec. 709 relative luminance of c in [0,1].
func Luma(c color.NRGBA) float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

// OutlineFor picks a near-opaque black or white that contrasts with c.
func OutlineFor(c color.NRGBA) color.NRGBA {
	if Luma(c) > 0.6 {
		return color.NRGBA{A: 220}
	}
	return color.NRGBA{R: 255, G: 255, B: 255, A: 220}
}
