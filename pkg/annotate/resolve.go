package annotate

import (
	"fmt"
	"math"
	"strings"

	"vizloop/pkg/errs"
	"vizloop/pkg/logging"
	"vizloop/pkg/units"
)

var (
	widthFields  = []string{"x", "x1", "x2", "w"}
	heightFields = []string{"y", "y1", "y2", "h"}
	offsetFields = []string{"anchor_offset", "from_offset", "to_offset"}
	anchorFields = []string{"anchor", "from", "to"}
)

// warnings collects per-element field errors. A malformed field is logged,
// recorded and then treated as absent.
type warnings struct {
	list []error
}

func (w *warnings) add(index int, tag, field string, value any) {
	logging.Logger().Warn("annotation field ignored",
		"index", index, "type", tag, "field", field, "value", value)
	w.list = append(w.list, fmt.Errorf("annotation %d (%s): %w", index, tag, errs.MalformedField(field, value)))
}

// env is the per-render context shared by every element.
type env struct {
	width, height int
	defaults      map[string]any
	scale         float64
	anchorPos     string
	anchorOffset  *Offset
	warn          *warnings
}

func newEnv(defaults map[string]any, width, height int, warn *warnings) *env {
	if defaults == nil {
		defaults = map[string]any{}
	}
	e := &env{
		width:    width,
		height:   height,
		defaults: defaults,
		scale:    BaseScale(defaults, width, height),
		warn:     warn,
	}
	if s, ok := units.String(defaults["anchor_pos"]); ok {
		e.anchorPos = s
	}
	if v, ok := defaults["anchor_offset"]; ok {
		rel := units.IsRelative(defaults["units"])
		if dx, dy, ok := e.offset(v, rel); ok {
			e.anchorOffset = &Offset{DX: dx, DY: dy}
		} else {
			warn.add(-1, "defaults", "anchor_offset", v)
		}
	}
	return e
}

// BaseScale is the multiplier for default stroke widths, arrow sizes, text
// sizes and paddings. An explicit defaults.scale wins (floored at 0.1);
// otherwise auto_scale grows it with the larger image side, clamped to
// [1, 2]; with auto_scale off it is 1.
func BaseScale(defaults map[string]any, width, height int) float64 {
	if s, ok := units.Float(defaults["scale"]); ok {
		return math.Max(s, 0.1)
	}
	if !units.Bool(defaults["auto_scale"], true) {
		return 1
	}
	maxDim := float64(max(width, height, 1))
	return math.Min(math.Max(maxDim/1200, 1), 2)
}

// merge overlays item on a copy of defaults. Element keys always win.
func merge(defaults, item map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(item))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (e *env) span(field string) float64 {
	for _, f := range heightFields {
		if f == field {
			return float64(e.height)
		}
	}
	return float64(e.width)
}

// offset resolves a [dx, dy] array or "dx,dy" string against the image
// axes.
func (e *env) offset(v any, rel bool) (dx, dy float64, ok bool) {
	var parts [2]any
	switch o := v.(type) {
	case []any:
		if len(o) < 2 {
			return 0, 0, false
		}
		parts = [2]any{o[0], o[1]}
	case string:
		fields := strings.Split(o, ",")
		if len(fields) < 2 {
			return 0, 0, false
		}
		parts = [2]any{strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])}
	default:
		return 0, 0, false
	}
	dx, okx := units.Measure(parts[0], float64(e.width), rel)
	dy, oky := units.Measure(parts[1], float64(e.height), rel)
	return dx, dy, okx && oky
}

// resolveUnits rewrites every coordinate field of m to a pixel number.
// Values that cannot be resolved are removed and reported. Nested anchor
// and fit objects are copied before being rewritten.
func (e *env) resolveUnits(m map[string]any, index int, tag string) {
	rel := units.IsRelative(m["units"])

	for _, key := range append(append([]string{}, widthFields...), heightFields...) {
		v, ok := m[key]
		if !ok {
			continue
		}
		if px, ok := units.Measure(v, e.span(key), rel); ok {
			m[key] = px
		} else {
			delete(m, key)
			e.warn.add(index, tag, key, v)
		}
	}

	for _, key := range offsetFields {
		v, ok := m[key]
		if !ok {
			continue
		}
		if dx, dy, ok := e.offset(v, rel); ok {
			m[key] = []any{dx, dy}
		} else {
			delete(m, key)
			e.warn.add(index, tag, key, v)
		}
	}

	for _, key := range anchorFields {
		obj, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		v, ok := obj["offset"]
		if !ok {
			continue
		}
		anchorRel := rel
		if u, ok := obj["units"]; ok {
			anchorRel = units.IsRelative(u)
		}
		updated := merge(obj, nil)
		if dx, dy, ok := e.offset(v, anchorRel); ok {
			updated["offset"] = []any{dx, dy}
		} else {
			delete(updated, "offset")
			e.warn.add(index, tag, key+".offset", v)
		}
		m[key] = updated
	}

	if fit, ok := m["fit"].(map[string]any); ok {
		m["fit"] = e.resolveFitUnits(fit, rel, index, tag)
	}
}

func (e *env) resolveFitUnits(fit map[string]any, rel bool, index int, tag string) map[string]any {
	updated := merge(fit, nil)
	if u, ok := fit["units"]; ok {
		rel = units.IsRelative(u)
	}

	if region, ok := fit["region"]; ok {
		var src map[string]any
		switch r := region.(type) {
		case map[string]any:
			src = r
		case []any:
			if len(r) >= 4 {
				src = map[string]any{"x": r[0], "y": r[1], "w": r[2], "h": r[3]}
			}
		}
		if src == nil {
			delete(updated, "region")
			e.warn.add(index, tag, "fit.region", region)
		} else {
			out := map[string]any{}
			for _, key := range []string{"x", "y", "w", "h"} {
				v, ok := src[key]
				if !ok {
					continue
				}
				if px, ok := units.Measure(v, e.span(key), rel); ok {
					out[key] = px
				} else {
					e.warn.add(index, tag, "fit.region."+key, v)
				}
			}
			updated["region"] = out
		}
	}

	if pad, ok := fit["pad"]; ok {
		span := float64(max(e.width, e.height, 1))
		if px, ok := units.Measure(pad, span, rel); ok {
			updated["pad"] = px
		} else {
			delete(updated, "pad")
			e.warn.add(index, tag, "fit.pad", pad)
		}
	}
	return updated
}
