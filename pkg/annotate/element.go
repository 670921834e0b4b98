package annotate

import (
	"image/color"
	"strings"
)

// Kind is the closed set of element variants.
type Kind string

const (
	KindRect      Kind = "rect"
	KindSpotlight Kind = "spotlight"
	KindArrow     Kind = "arrow"
	KindText      Kind = "text"
)

// KindOf maps a type tag to its Kind. Tags are case-insensitive and focus
// and dim are spellings of spotlight.
func KindOf(tag string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "rect":
		return KindRect, true
	case "spotlight", "focus", "dim":
		return KindSpotlight, true
	case "arrow":
		return KindArrow, true
	case "text":
		return KindText, true
	}
	return "", false
}

// Element is one resolved annotation. The concrete type is one of *Rect,
// *Spotlight, *Arrow or *Text.
type Element interface {
	Kind() Kind
	base() *Base
}

// Base carries the fields shared by every variant.
type Base struct {
	// Index is the element's position in the document's annotation list.
	Index int
	// Tag is the lowercased type tag as written.
	Tag   string
	ID    string
	Scale float64

	// Semantic holds id, units, intent, action and the review fields
	// exactly as written; they are copied to metadata and never read.
	Semantic map[string]any
	// Extra holds element keys that no variant recognizes.
	Extra map[string]any
}

func (b *Base) base() *Base { return b }

// Box is an optional x/y/w/h rectangle; absent fields are nil.
type Box struct {
	X, Y, W, H *float64
}

// Bounds returns x0, y0, x1, y1 when every field is set and the box has
// positive area.
func (b Box) Bounds() (x0, y0, x1, y1 float64, ok bool) {
	if b.X == nil || b.Y == nil || b.W == nil || b.H == nil {
		return 0, 0, 0, 0, false
	}
	if *b.W <= 0 || *b.H <= 0 {
		return 0, 0, 0, 0, false
	}
	return *b.X, *b.Y, *b.X + *b.W, *b.Y + *b.H, true
}

// Offset is a pixel displacement.
type Offset struct {
	DX, DY float64
}

// Rect is an outlined box with an optional fill.
type Rect struct {
	Base
	Box

	Fill         *color.NRGBA
	Color        color.NRGBA
	Width        int // 0 derives from scale
	Outline      bool
	OutlineWidth int // 0 derives from Width
	OutlineColor *color.NRGBA
	Fit          *FitConfig
}

func (*Rect) Kind() Kind { return KindRect }

// Spotlight dims everything outside a rounded hole.
type Spotlight struct {
	Base
	Box

	Color   color.NRGBA
	Padding float64 // before scaling
	Radius  float64 // before scaling
	Fit     *FitConfig
}

func (*Spotlight) Kind() Kind { return KindSpotlight }

// Arrow runs from (X1, Y1) to its head at (X2, Y2). Either end may be
// anchored to a resolved rect or spotlight.
type Arrow struct {
	Base

	X1, Y1, X2, Y2       *float64
	From, To             *AnchorSpec
	FromPos, ToPos       string
	FromOffset, ToOffset *Offset

	Color        color.NRGBA
	Width        *float64
	HeadLen      *float64
	HeadWidth    *float64
	Outline      bool
	OutlineWidth *float64
	OutlineColor *color.NRGBA
}

func (*Arrow) Kind() Kind { return KindArrow }

// Text is a bitmap label with optional background and outline.
type Text struct {
	Base

	X, Y         *float64
	Content      string
	Anchor       *AnchorSpec
	AnchorPos    string
	AnchorOffset *Offset

	Color        color.NRGBA
	Size         int  // 0 derives from scale
	Padding      *int // nil derives from scale
	Background   *color.NRGBA
	Outline      bool
	OutlineWidth int // 0 derives from Size
	OutlineColor *color.NRGBA
}

func (*Text) Kind() Kind { return KindText }

// FitConfig controls snapping a rect or spotlight to image content.
type FitConfig struct {
	Mode string // "luma" or "color"
	// Region overrides the element's own box as the search area.
	Region *Box

	Threshold float64
	Target    string // "dark" or "light"
	Color     *color.NRGBA
	Tolerance float64

	Pad       float64
	MinPixels int
	// MinCoverage is parsed and reported but never rejects a fit.
	MinCoverage float64
}

func ptr[T any](v T) *T { return &v }

func deref(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
