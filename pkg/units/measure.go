package units

import (
	"strconv"
	"strings"
)

// IsRelative reports whether a units value selects fraction-of-span mode
// for bare numbers.
func IsRelative(v any) bool {
	switch u := v.(type) {
	case bool:
		return u
	case string:
		switch strings.ToLower(strings.TrimSpace(u)) {
		case "rel", "relative", "ratio", "fraction", "normalized":
			return true
		}
	}
	return false
}

// Measure resolves a coordinate value against an axis span.
//
//	12      absolute pixels, or 12*span when rel
//	"12"    same as the bare number
//	"25%"   0.25*span
//	"0.3rel" 0.3*span; magnitudes above 1 are percentages ("30rel")
//	"40px"  40, span ignored
//
// Resolving a value that is already a pixel number with rel=false returns
// it unchanged.
func Measure(v any, span float64, rel bool) (float64, bool) {
	if isNumber(v) {
		f, ok := Float(v)
		if !ok {
			return 0, false
		}
		if rel {
			return f * span, true
		}
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return 0, false
	}
	if p, found := strings.CutSuffix(raw, "%"); found {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, false
		}
		return f * span / 100, true
	}
	if r, found := strings.CutSuffix(raw, "rel"); found {
		if f, err := strconv.ParseFloat(strings.TrimSpace(r), 64); err == nil {
			if f > 1 || f < -1 {
				f /= 100
			}
			return f * span, true
		}
	}
	if p, found := strings.CutSuffix(raw, "px"); found {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		return f, err == nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if rel {
		return f * span, true
	}
	return f, true
}
