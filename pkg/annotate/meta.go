package annotate

import (
	"math"

	"vizloop/pkg/units"
)

// MetaVersion is written to every sidecar as annotation_meta_version.
const MetaVersion = 1

// MetaItem describes one rendered element in its final, resolved form.
// The semantic fields are always present and null when unset.
type MetaItem struct {
	Index      int    `json:"index"`
	Type       string `json:"type"`
	ID         any    `json:"id"`
	Units      any    `json:"units"`
	Intent     any    `json:"intent"`
	Action     any    `json:"action"`
	Severity   any    `json:"severity"`
	Issue      any    `json:"issue"`
	Hypothesis any    `json:"hypothesis"`
	NextAction any    `json:"next_action"`
	Verify     any    `json:"verify"`

	Geometry    map[string]any `json:"geometry,omitempty"`
	GeometryRel map[string]any `json:"geometry_rel,omitempty"`
	Text        string         `json:"text,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Size is the sidecar image size block.
type Size struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Units  string `json:"units"`
}

// Sidecar is the metadata document written next to an annotated image.
type Sidecar struct {
	Version     int            `json:"annotation_meta_version"`
	InputPath   string         `json:"input_path"`
	OutputPath  string         `json:"output_path"`
	MetaPath    string         `json:"meta_path"`
	GeneratedAt string         `json:"generated_at"`
	Size        Size           `json:"size"`
	Defaults    map[string]any `json:"defaults"`
	Annotations []MetaItem     `json:"annotations"`
}

func metaItem(el Element, width, height int) MetaItem {
	b := el.base()
	item := MetaItem{
		Index:      b.Index,
		Type:       b.Tag,
		ID:         b.Semantic["id"],
		Units:      b.Semantic["units"],
		Intent:     b.Semantic["intent"],
		Action:     b.Semantic["action"],
		Severity:   b.Semantic["severity"],
		Issue:      b.Semantic["issue"],
		Hypothesis: b.Semantic["hypothesis"],
		NextAction: b.Semantic["next_action"],
		Verify:     b.Semantic["verify"],
		Extra:      b.Extra,
	}

	var keys []string
	var values []*float64
	switch e := el.(type) {
	case *Rect:
		keys, values = []string{"x", "y", "w", "h"}, []*float64{e.X, e.Y, e.W, e.H}
	case *Spotlight:
		keys, values = []string{"x", "y", "w", "h"}, []*float64{e.X, e.Y, e.W, e.H}
	case *Arrow:
		keys, values = []string{"x1", "y1", "x2", "y2"}, []*float64{e.X1, e.Y1, e.X2, e.Y2}
	case *Text:
		keys, values = []string{"x", "y"}, []*float64{e.X, e.Y}
		item.Text = e.Content
	}

	geometry := map[string]any{}
	rel := map[string]any{}
	for i, key := range keys {
		if values[i] == nil {
			continue
		}
		v := *values[i]
		geometry[key] = normalizeNumber(v)
		span := width
		if key == "y" || key == "y1" || key == "y2" || key == "h" {
			span = height
		}
		if span > 0 {
			rel[key] = units.RoundTo(numberValue(geometry[key])/float64(span), 6)
		}
	}
	if len(geometry) == 0 {
		return item
	}
	item.Geometry = geometry

	if el.Kind() == KindRect || el.Kind() == KindSpotlight {
		if len(geometry) == 4 {
			bbox := map[string]any{}
			for _, key := range keys {
				span := width
				if key == "y" || key == "h" {
					span = height
				}
				bbox[key] = 0.0
				if span > 0 {
					bbox[key] = units.RoundTo(numberValue(geometry[key])/float64(span), 6)
				}
			}
			rel["bbox"] = bbox
		}
	}
	if len(rel) > 0 {
		item.GeometryRel = rel
	}
	return item
}

// normalizeNumber rounds to four decimals and reports integral results as
// integers.
func normalizeNumber(v float64) any {
	r := units.RoundTo(v, 4)
	if math.Abs(r-math.Round(r)) < 1e-6 {
		return int64(math.Round(r))
	}
	return r
}

func numberValue(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
