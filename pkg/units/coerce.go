// Package units converts the loosely typed values found in annotation
// documents (numbers, numeric strings, percent and pixel suffixes, colors)
// into definite Go values.
package units

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float converts numbers and numeric strings.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint8:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// isNumber reports whether v is a numeric (not string) value.
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, uint, uint64, uint32, uint8, json.Number:
		return true
	}
	return false
}

// Int rounds a numeric value to the nearest integer, or returns fallback.
func Int(v any, fallback int) int {
	f, ok := Float(v)
	if !ok {
		return fallback
	}
	return int(math.Round(f))
}

// Uint accepts non-negative integral numbers and unsigned integer strings.
func Uint(v any) (int, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 31)
		return int(n), err == nil
	}
	if !isNumber(v) {
		return 0, false
	}
	f, _ := Float(v)
	if f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Bool interprets booleans, integers and the usual yes/no words.
func Bool(v any, fallback bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return fallback
	}
	if isNumber(v) {
		f, _ := Float(v)
		if f != math.Trunc(f) {
			return fallback
		}
		return f != 0
	}
	return fallback
}

// String returns trimmed non-empty strings; other non-nil values are
// rendered as their JSON text.
func String(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return string(raw), true
}

// Offset parses a two element [dx, dy] array or a "dx,dy" string.
func Offset(v any) (dx, dy float64, ok bool) {
	switch o := v.(type) {
	case []any:
		if len(o) < 2 {
			return 0, 0, false
		}
		x, okx := Float(o[0])
		y, oky := Float(o[1])
		return x, y, okx && oky
	case []float64:
		if len(o) < 2 {
			return 0, 0, false
		}
		return o[0], o[1], true
	case string:
		parts := strings.Split(o, ",")
		if len(parts) < 2 {
			return 0, 0, false
		}
		x, errx := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, erry := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		return x, y, errx == nil && erry == nil
	}
	return 0, 0, false
}

// RoundTo rounds v to the given number of decimal digits.
func RoundTo(v float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(v*factor) / factor
}

// ScaleDefault scales a default size and enforces a floor.
func ScaleDefault(value, scale float64, min int) int {
	n := int(math.Round(value * scale))
	if n < min {
		return min
	}
	return n
}
