package annotate

import (
	"image/color"
	"math"
	"strings"

	"vizloop/pkg/units"
)

// semanticKeys pass through to metadata unchanged.
var semanticKeys = []string{
	"id", "units", "intent", "action", "severity",
	"issue", "hypothesis", "next_action", "verify",
}

// knownKeys are interpreted by some variant or by the defaults; anything
// else on an element is kept in Base.Extra.
var knownKeys = map[string]bool{
	"type": true, "scale": true, "text": true,
	"x": true, "y": true, "w": true, "h": true,
	"x1": true, "y1": true, "x2": true, "y2": true,
	"fill": true, "color": true, "width": true,
	"outline": true, "outline_width": true, "outline_color": true,
	"fit": true, "opacity": true, "padding": true, "radius": true,
	"dim_color": true, "dim_opacity": true, "dim_padding": true, "dim_radius": true,
	"from": true, "to": true, "from_pos": true, "to_pos": true,
	"from_offset": true, "to_offset": true, "head_len": true, "head_width": true,
	"anchor": true, "anchor_pos": true, "anchor_offset": true,
	"size": true, "bg": true, "text_bg": true,
	"auto_scale": true, "auto_fit": true, "fit_mode": true, "fit_threshold": true,
	"fit_target": true, "fit_tolerance": true, "fit_color": true, "fit_pad": true,
	"fit_min_pixels": true, "fit_min_coverage": true,
}

func init() {
	for _, k := range semanticKeys {
		knownKeys[k] = true
	}
}

// fields reads typed values out of a merged element map, reporting
// present-but-malformed values.
type fields struct {
	m     map[string]any
	index int
	tag   string
	warn  *warnings
}

func (f fields) bad(key string) {
	f.warn.add(f.index, f.tag, key, f.m[key])
}

func (f fields) num(key string) *float64 {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := units.Float(v)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		f.bad(key)
		return nil
	}
	return &n
}

func (f fields) uint(key string) (int, bool) {
	v, ok := f.m[key]
	if !ok || v == nil {
		return 0, false
	}
	n, ok := units.Uint(v)
	if !ok {
		f.bad(key)
	}
	return n, ok
}

func (f fields) boolean(key string, fallback bool) bool {
	v, ok := f.m[key]
	if !ok {
		return fallback
	}
	return units.Bool(v, fallback)
}

// text keeps strings verbatim and formats scalar numbers and bools.
func (f fields) text(key string) string {
	switch v := f.m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, bool:
		s, _ := units.String(v)
		return s
	}
	f.bad(key)
	return ""
}

func (f fields) str(key string) string {
	s, _ := units.String(f.m[key])
	return s
}

func (f fields) color(key string) *color.NRGBA {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	c, ok := units.ParseColor(v)
	if !ok {
		f.bad(key)
		return nil
	}
	return &c
}

func (f fields) colorOr(key string, fallback color.NRGBA) color.NRGBA {
	if c := f.color(key); c != nil {
		return *c
	}
	return fallback
}

func (f fields) offset(key string) *Offset {
	v, ok := f.m[key]
	if !ok || v == nil {
		return nil
	}
	dx, dy, ok := units.Offset(v)
	if !ok {
		f.bad(key)
		return nil
	}
	return &Offset{DX: dx, DY: dy}
}

func (f fields) anchor(key string) *AnchorSpec {
	v, ok := f.m[key]
	if !ok {
		return nil
	}
	spec, ok := ParseAnchor(v)
	if !ok {
		f.bad(key)
	}
	return spec
}

var (
	defaultRectColor  = color.NRGBA{R: 255, G: 59, B: 48, A: 255}
	defaultArrowColor = color.NRGBA{R: 10, G: 132, B: 255, A: 255}
	defaultTextColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	defaultDimColor   = color.NRGBA{A: 115}
)

// decode turns a merged, unit-resolved record into its variant. item is
// the element's own record, used for pass-through extras and its scale.
func (e *env) decode(index int, item, m map[string]any) (Element, bool) {
	rawTag, _ := units.String(m["type"])
	tag := strings.ToLower(rawTag)
	kind, ok := KindOf(tag)
	if !ok {
		e.warn.add(index, tag, "type", m["type"])
		return nil, false
	}

	f := fields{m: m, index: index, tag: tag, warn: e.warn}
	b := Base{
		Index:    index,
		Tag:      tag,
		Scale:    e.scale,
		Semantic: map[string]any{},
	}
	if id, ok := m["id"].(string); ok {
		b.ID = strings.TrimSpace(id)
	}
	if s, ok := units.Float(item["scale"]); ok {
		b.Scale = math.Max(s, 0.1)
	}
	for _, k := range semanticKeys {
		if v, ok := m[k]; ok {
			b.Semantic[k] = v
		}
	}
	for k, v := range item {
		if !knownKeys[k] {
			if b.Extra == nil {
				b.Extra = map[string]any{}
			}
			b.Extra[k] = v
		}
	}

	box := Box{X: f.num("x"), Y: f.num("y"), W: f.num("w"), H: f.num("h")}

	switch kind {
	case KindRect:
		r := &Rect{
			Base:         b,
			Box:          box,
			Fill:         f.color("fill"),
			Color:        f.colorOr("color", defaultRectColor),
			Outline:      f.boolean("outline", true),
			OutlineColor: f.color("outline_color"),
			Fit:          e.fitConfig(f),
		}
		if n, ok := f.uint("width"); ok {
			r.Width = max(n, 1)
		}
		if n, ok := f.uint("outline_width"); ok {
			r.OutlineWidth = max(n, 1)
		}
		return r, true

	case KindSpotlight:
		s := &Spotlight{Base: b, Box: box, Fit: e.fitConfig(f)}
		s.Color = defaultDimColor
		if c := f.color("color"); c != nil {
			s.Color = *c
		} else if c := f.color("dim_color"); c != nil {
			s.Color = *c
		}
		opacity := f.num("opacity")
		if opacity == nil {
			if v, ok := units.Float(e.defaults["dim_opacity"]); ok {
				opacity = &v
			}
		}
		if opacity != nil {
			s.Color.A = units.AlphaByte(*opacity)
		}
		s.Padding = e.spotSize(f, "padding", "dim_padding")
		s.Radius = e.spotSize(f, "radius", "dim_radius")
		return s, true

	case KindArrow:
		a := &Arrow{
			Base:         b,
			X1:           f.num("x1"),
			Y1:           f.num("y1"),
			X2:           f.num("x2"),
			Y2:           f.num("y2"),
			From:         f.anchor("from"),
			To:           f.anchor("to"),
			FromPos:      f.str("from_pos"),
			ToPos:        f.str("to_pos"),
			FromOffset:   f.offset("from_offset"),
			ToOffset:     f.offset("to_offset"),
			Color:        f.colorOr("color", defaultArrowColor),
			Width:        f.num("width"),
			HeadLen:      f.num("head_len"),
			HeadWidth:    f.num("head_width"),
			Outline:      f.boolean("outline", true),
			OutlineWidth: f.num("outline_width"),
			OutlineColor: f.color("outline_color"),
		}
		return a, true

	case KindText:
		t := &Text{
			Base:         b,
			X:            f.num("x"),
			Y:            f.num("y"),
			Anchor:       f.anchor("anchor"),
			AnchorPos:    f.str("anchor_pos"),
			AnchorOffset: f.offset("anchor_offset"),
			Color:        f.colorOr("color", defaultTextColor),
			Outline:      f.boolean("outline", true),
			OutlineColor: f.color("outline_color"),
		}
		t.Content = f.text("text")
		if n, ok := f.uint("size"); ok {
			t.Size = max(n, 8)
		}
		if n, ok := f.uint("padding"); ok {
			t.Padding = &n
		}
		if n, ok := f.uint("outline_width"); ok {
			t.OutlineWidth = max(n, 1)
		}
		// The first background key present wins, even when it does not parse.
		if _, ok := m["bg"]; ok {
			t.Background = f.color("bg")
		} else {
			t.Background = f.color("text_bg")
		}
		return t, true
	}
	return nil, false
}

// spotSize reads a spotlight padding or radius from the element, else from
// the defaults' dim_ key.
func (e *env) spotSize(f fields, key, dimKey string) float64 {
	if v := f.num(key); v != nil {
		return *v
	}
	if v, ok := units.Float(e.defaults[dimKey]); ok {
		return v
	}
	return 0
}
