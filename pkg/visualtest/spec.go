package visualtest

import (
	"fmt"

	"vizloop/pkg/annotate"
	"vizloop/pkg/fileio"
	"vizloop/pkg/regions"
)

// AnnotateSpec is an annotation document that boxes and numbers every
// change region. Fields are declared in output order.
type AnnotateSpec struct {
	Defaults    SpecDefaults `json:"defaults"`
	Annotations []any        `json:"annotations"`
}

// SpecDefaults are the document-wide settings of a generated spec.
type SpecDefaults struct {
	AutoScale bool   `json:"auto_scale"`
	Outline   bool   `json:"outline"`
	TextBg    string `json:"text_bg"`
}

// SpecRect boxes one region.
type SpecRect struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
	Color  string `json:"color"`
	Width  int    `json:"width"`
	Intent string `json:"intent"`
	Action string `json:"action"`
}

// SpecLabel numbers one region, anchored above its box.
type SpecLabel struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	Anchor       string `json:"anchor"`
	AnchorPos    string `json:"anchor_pos"`
	AnchorOffset [2]int `json:"anchor_offset"`
	Color        string `json:"color"`
	TextBg       string `json:"text_bg"`
	Intent       string `json:"intent"`
	Action       string `json:"action"`
}

// BuildAnnotateSpec returns a rect and a numbered label for each region,
// in region order.
func BuildAnnotateSpec(rs []regions.ChangeRegion) *AnnotateSpec {
	spec := &AnnotateSpec{
		Defaults: SpecDefaults{
			AutoScale: true,
			Outline:   true,
			TextBg:    "rgba(0,0,0,0.6)",
		},
		Annotations: make([]any, 0, 2*len(rs)),
	}
	for i, r := range rs {
		spec.Annotations = append(spec.Annotations,
			SpecRect{
				Type:   "rect",
				ID:     r.ID,
				X:      r.X,
				Y:      r.Y,
				W:      r.W,
				H:      r.H,
				Color:  "#FF453A",
				Width:  3,
				Intent: "changed-region",
				Action: "inspect",
			},
			SpecLabel{
				Type:         "text",
				Text:         fmt.Sprintf("%d", i+1),
				Anchor:       r.ID,
				AnchorPos:    "top_left",
				AnchorOffset: [2]int{0, -18},
				Color:        "#FFFFFF",
				TextBg:       "rgba(255,69,58,0.78)",
				Intent:       "change-label",
				Action:       "review-diff",
			},
		)
	}
	return spec
}

// Document converts the spec into a renderable annotation document.
func (s *AnnotateSpec) Document() (*annotate.Document, error) {
	data, err := fileio.Marshal(s)
	if err != nil {
		return nil, err
	}
	return annotate.Parse(data, annotate.FormatJSON)
}
