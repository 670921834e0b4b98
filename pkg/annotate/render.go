package annotate

import (
	"errors"
	"image"
	"slices"
	"strings"
	"time"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
	"vizloop/pkg/images"
	"vizloop/pkg/logging"
	"vizloop/pkg/raster"
	"vizloop/pkg/units"
)

// Result is an in-memory render.
type Result struct {
	Image *image.NRGBA
	// Items holds one entry per rendered element, ordered by index.
	Items []MetaItem
	// Warnings lists the fields that were ignored; each wraps
	// errs.ErrMalformedField.
	Warnings []error
	Scale    float64
}

// Render draws doc onto a copy of src. Auto-fit always scans the
// untouched source pixels.
func Render(src image.Image, doc *Document) (*Result, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, errs.Input("cannot annotate", "", errors.New("image has no pixels"))
	}
	if doc == nil {
		doc = &Document{}
	}
	canvasImg := images.ToNRGBA(src)
	fitSrc := images.Clone(canvasImg)
	w, h := canvasImg.Bounds().Dx(), canvasImg.Bounds().Dy()

	warn := &warnings{}
	e := newEnv(doc.Defaults, w, h, warn)

	var spots []*Spotlight
	var rects []*Rect
	var rest []Element
	for i, raw := range doc.Annotations {
		item, ok := raw.(map[string]any)
		if !ok {
			logging.Logger().Debug("skipping non-object annotation", "index", i)
			continue
		}
		merged := merge(e.defaults, item)
		rawTag, _ := units.String(merged["type"])
		e.resolveUnits(merged, i, strings.ToLower(rawTag))
		el, ok := e.decode(i, item, merged)
		if !ok {
			continue
		}
		switch v := el.(type) {
		case *Spotlight:
			spots = append(spots, v)
		case *Rect:
			rects = append(rects, v)
		default:
			rest = append(rest, el)
		}
	}

	c := raster.New(canvasImg)
	var targets []Target
	items := make([]MetaItem, 0, len(spots)+len(rects)+len(rest))

	for _, s := range spots {
		if fitted, ok := Fit(fitSrc, s.Box, s.Fit); ok {
			s.Box = fitted
		}
		drawSpotlight(c, s)
		targets = appendTarget(targets, &s.Base, KindSpotlight, s.Box)
		items = append(items, metaItem(s, w, h))
	}

	for _, r := range rects {
		if fitted, ok := Fit(fitSrc, r.Box, r.Fit); ok {
			r.Box = fitted
		}
		drawRect(c, r)
		targets = appendTarget(targets, &r.Base, KindRect, r.Box)
		items = append(items, metaItem(r, w, h))
	}

	for _, el := range rest {
		switch v := el.(type) {
		case *Arrow:
			e.anchorArrow(v, targets)
			drawArrow(c, v)
		case *Text:
			e.anchorText(v, targets)
			drawText(c, v)
		}
		items = append(items, metaItem(el, w, h))
	}

	slices.SortStableFunc(items, func(a, b MetaItem) int { return a.Index - b.Index })

	return &Result{
		Image:    canvasImg,
		Items:    items,
		Warnings: warn.list,
		Scale:    e.scale,
	}, nil
}

func appendTarget(targets []Target, b *Base, kind Kind, box Box) []Target {
	x0, y0, x1, y1, ok := box.Bounds()
	if !ok {
		return targets
	}
	return append(targets, Target{ID: b.ID, Index: b.Index, Kind: kind, X0: x0, Y0: y0, X1: x1, Y1: y1})
}

// FileOptions names the files of an annotate run.
type FileOptions struct {
	Input  string
	Spec   string
	Output string
	// Meta overrides the sidecar path; empty means next to Output.
	Meta   string
	NoMeta bool
}

// FileResult reports where a file render wrote its outputs.
type FileResult struct {
	OutputPath string
	MetaPath   string
	Sidecar    *Sidecar
	Warnings   []error
}

// RenderFile loads an image and a spec, renders, and writes the output
// image and, unless disabled, its metadata sidecar.
func RenderFile(opts FileOptions) (*FileResult, error) {
	if !fileio.Available(opts.Input) {
		return nil, errs.Input("input not found", opts.Input, nil)
	}
	src, err := images.LoadNRGBA(opts.Input)
	if err != nil {
		return nil, err
	}
	doc, err := Load(opts.Spec, src.Bounds().Size())
	if err != nil {
		return nil, err
	}
	res, err := Render(src, doc)
	if err != nil {
		return nil, err
	}
	if err := images.SavePNG(opts.Output, res.Image); err != nil {
		return nil, err
	}

	out := &FileResult{OutputPath: fileio.Abs(opts.Output), Warnings: res.Warnings}
	logging.Logger().Info("annotated image written",
		"output", out.OutputPath, "elements", len(res.Items), "warnings", len(res.Warnings))
	if opts.NoMeta {
		return out, nil
	}

	metaPath := opts.Meta
	if metaPath == "" {
		metaPath = fileio.SidecarPath(opts.Output)
	}
	defaults := doc.Defaults
	if defaults == nil {
		defaults = map[string]any{}
	}
	sc := &Sidecar{
		Version:     MetaVersion,
		InputPath:   fileio.Abs(opts.Input),
		OutputPath:  out.OutputPath,
		MetaPath:    fileio.Abs(metaPath),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Size:        Size{Width: res.Image.Bounds().Dx(), Height: res.Image.Bounds().Dy(), Units: "px"},
		Defaults:    defaults,
		Annotations: res.Items,
	}
	if err := fileio.WriteJSON(metaPath, sc); err != nil {
		return nil, err
	}
	out.MetaPath = sc.MetaPath
	out.Sidecar = sc
	return out, nil
}
