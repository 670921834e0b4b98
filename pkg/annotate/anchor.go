package annotate

import (
	"math"
	"strings"

	"vizloop/pkg/units"
)

// AnchorSpec selects a previously resolved rect or spotlight.
type AnchorSpec struct {
	ID       string
	Index    int
	HasIndex bool
	Nearest  bool
	// Type restricts candidates to one kind; empty matches any.
	Type   Kind
	Pos    string
	Offset *Offset
}

// ParseAnchor reads the accepted anchor spellings: true or "nearest" for
// the closest target, a string id, a numeric element index, or an object
// with id, index, nearest, type, pos and offset keys. ok is false for
// values of an unsupported shape. A nil spec with ok true means no anchor.
func ParseAnchor(v any) (*AnchorSpec, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case bool:
		if !t {
			return nil, true
		}
		return &AnchorSpec{Nearest: true}, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, true
		}
		if strings.EqualFold(s, "nearest") {
			return &AnchorSpec{Nearest: true}, true
		}
		return &AnchorSpec{ID: s}, true
	case map[string]any:
		spec := &AnchorSpec{}
		if id, ok := units.String(t["id"]); ok {
			spec.ID = strings.TrimSpace(id)
		}
		if raw, ok := t["index"]; ok && raw != nil {
			n, ok := units.Uint(raw)
			if !ok {
				return nil, false
			}
			spec.Index, spec.HasIndex = n, true
		}
		spec.Nearest = units.Bool(t["nearest"], false)
		if tag, ok := units.String(t["type"]); ok && tag != "" {
			kind, ok := KindOf(tag)
			if !ok {
				return nil, false
			}
			spec.Type = kind
		}
		if pos, ok := units.String(t["pos"]); ok {
			spec.Pos = pos
		}
		if raw, ok := t["offset"]; ok {
			dx, dy, ok := units.Offset(raw)
			if !ok {
				return nil, false
			}
			spec.Offset = &Offset{DX: dx, DY: dy}
		}
		return spec, true
	case float64, float32, int, int64, int32, uint, uint64, uint32:
		n, ok := units.Uint(t)
		if !ok {
			return nil, false
		}
		return &AnchorSpec{Index: n, HasIndex: true}, true
	}
	return nil, false
}

// Target is a resolved rect or spotlight that later elements may anchor
// to.
type Target struct {
	ID             string
	Index          int
	Kind           Kind
	X0, Y0, X1, Y1 float64
}

// Center returns the middle of the target box.
func (t Target) Center() (x, y float64) {
	return (t.X0 + t.X1) / 2, (t.Y0 + t.Y1) / 2
}

// Point returns a named position on the target box. Names are
// case-insensitive and may use '-' for '_'; unknown names mean center.
func (t Target) Point(pos string) (x, y float64) {
	cx, cy := t.Center()
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(pos)), "-", "_") {
	case "top":
		return cx, t.Y0
	case "bottom":
		return cx, t.Y1
	case "left":
		return t.X0, cy
	case "right":
		return t.X1, cy
	case "top_left":
		return t.X0, t.Y0
	case "top_right":
		return t.X1, t.Y0
	case "bottom_left":
		return t.X0, t.Y1
	case "bottom_right":
		return t.X1, t.Y1
	}
	return cx, cy
}

// Resolve picks the target spec refers to. Candidates are filtered by
// type, then matched by id and then by index. When none of those apply,
// or the anchor asks for it, the target whose center is closest to
// (fx, fy) wins; ties go to the earliest target.
func Resolve(spec *AnchorSpec, targets []Target, fx, fy float64) (Target, bool) {
	if spec == nil {
		return Target{}, false
	}
	candidates := targets
	if spec.Type != "" {
		candidates = nil
		for _, t := range targets {
			if t.Kind == spec.Type {
				candidates = append(candidates, t)
			}
		}
	}
	if spec.ID != "" {
		for _, t := range candidates {
			if t.ID == spec.ID {
				return t, true
			}
		}
	}
	if spec.HasIndex {
		for _, t := range candidates {
			if t.Index == spec.Index {
				return t, true
			}
		}
	}
	if !spec.Nearest && (spec.ID != "" || spec.HasIndex || spec.Type != "") {
		return Target{}, false
	}

	best, found := Target{}, false
	bestDist := math.Inf(1)
	for _, t := range candidates {
		cx, cy := t.Center()
		if d := math.Hypot(cx-fx, cy-fy); d < bestDist {
			best, bestDist, found = t, d, true
		}
	}
	return best, found
}

// anchorText moves t onto its anchor, if it has one that resolves.
func (e *env) anchorText(t *Text, targets []Target) {
	if t.Anchor == nil {
		return
	}
	x, y := deref(t.X, float64(e.width)/2), deref(t.Y, float64(e.height)/2)
	target, ok := Resolve(t.Anchor, targets, x, y)
	if !ok {
		return
	}
	pos := firstNonEmpty(t.Anchor.Pos, t.AnchorPos, e.anchorPos, "top")
	off := firstOffset(t.Anchor.Offset, t.AnchorOffset, e.anchorOffset)
	px, py := target.Point(pos)
	t.X, t.Y = ptr(px+off.DX), ptr(py+off.DY)
}

// anchorArrow moves each anchored end of a onto its target.
func (e *env) anchorArrow(a *Arrow, targets []Target) {
	fx, fy := deref(a.X1, float64(e.width)/2), deref(a.Y1, float64(e.height)/2)
	if x, y, ok := e.anchorEnd(a.From, a.FromPos, a.FromOffset, targets, fx, fy); ok {
		a.X1, a.Y1 = ptr(x), ptr(y)
	}
	tx, ty := deref(a.X2, float64(e.width)/2), deref(a.Y2, float64(e.height)/2)
	if x, y, ok := e.anchorEnd(a.To, a.ToPos, a.ToOffset, targets, tx, ty); ok {
		a.X2, a.Y2 = ptr(x), ptr(y)
	}
}

func (e *env) anchorEnd(spec *AnchorSpec, pos string, off *Offset, targets []Target, fx, fy float64) (x, y float64, ok bool) {
	target, ok := Resolve(spec, targets, fx, fy)
	if !ok {
		return 0, 0, false
	}
	p := firstNonEmpty(spec.Pos, pos, e.anchorPos, "center")
	o := firstOffset(spec.Offset, off, e.anchorOffset)
	x, y = target.Point(p)
	return x + o.DX, y + o.DY, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstOffset(offsets ...*Offset) Offset {
	for _, o := range offsets {
		if o != nil {
			return *o
		}
	}
	return Offset{}
}
