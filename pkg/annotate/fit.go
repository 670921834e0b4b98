package annotate

import (
	"image"
	"math"
	"strings"

	"vizloop/pkg/logging"
	"vizloop/pkg/units"
)

// fitConfig builds the auto-fit settings for a rect or spotlight. An
// element "fit" key wins: false disables, true uses the built-in settings,
// a string names the mode and an object spells everything out. Without
// one, defaults.auto_fit (on unless disabled) applies the defaults' fit_
// keys.
func (e *env) fitConfig(f fields) *FitConfig {
	var cfg map[string]any
	if v, ok := f.m["fit"]; ok {
		switch t := v.(type) {
		case bool:
			if !t {
				return nil
			}
			cfg = map[string]any{}
		case string:
			cfg = map[string]any{"mode": t}
		case map[string]any:
			cfg = t
		default:
			f.bad("fit")
			return nil
		}
	} else {
		if !units.Bool(e.defaults["auto_fit"], true) {
			return nil
		}
		cfg = map[string]any{"mode": "luma"}
		if mode, ok := e.defaults["fit_mode"]; ok {
			cfg["mode"] = mode
		}
		for _, key := range []string{
			"fit_threshold", "fit_target", "fit_tolerance", "fit_color",
			"fit_pad", "fit_min_pixels", "fit_min_coverage",
		} {
			if v, ok := e.defaults[key]; ok {
				cfg[strings.TrimPrefix(key, "fit_")] = v
			}
		}
		// Defaults are not unit-resolved per element; a relative pad
		// resolves against the larger image side here.
		if pad, ok := cfg["pad"]; ok {
			span := float64(max(e.width, e.height, 1))
			if px, ok := units.Measure(pad, span, units.IsRelative(e.defaults["units"])); ok {
				cfg["pad"] = px
			} else {
				delete(cfg, "pad")
				f.bad("fit_pad")
			}
		}
	}

	fc := fields{m: cfg, index: f.index, tag: f.tag, warn: f.warn}
	out := &FitConfig{
		Mode:        "luma",
		Threshold:   160,
		Target:      "dark",
		Tolerance:   18,
		MinPixels:   30,
		MinCoverage: 0.6,
	}
	if s := fc.str("mode"); s != "" {
		out.Mode = strings.ToLower(s)
	}
	if r, ok := cfg["region"].(map[string]any); ok {
		rf := fields{m: r, index: f.index, tag: f.tag, warn: f.warn}
		out.Region = &Box{X: rf.num("x"), Y: rf.num("y"), W: rf.num("w"), H: rf.num("h")}
	}
	if v := fc.num("threshold"); v != nil {
		out.Threshold = *v
	}
	if s := fc.str("target"); s != "" {
		out.Target = s
	}
	if _, ok := cfg["color"]; ok {
		out.Color = fc.color("color")
	} else {
		out.Color = fc.color("target_color")
	}
	if v := fc.num("tolerance"); v != nil {
		out.Tolerance = *v
	}
	if v := fc.num("pad"); v != nil {
		out.Pad = *v
	}
	if v := fc.num("min_pixels"); v != nil {
		out.MinPixels = int(math.Max(*v, 1))
	}
	if v := fc.num("min_coverage"); v != nil {
		out.MinCoverage = math.Max(*v, 0)
	}
	return out
}

// searchRegion is the half-open pixel box scanned by a fit: the override
// region if given, else the element box. Missing x/y are 0 and missing
// w/h span the image. An empty result falls back to the whole image.
func searchRegion(box Box, cfg *FitConfig, w, h int) image.Rectangle {
	if cfg.Region != nil {
		box = *cfg.Region
	}
	x := deref(box.X, 0)
	y := deref(box.Y, 0)
	bw := deref(box.W, float64(w))
	bh := deref(box.H, float64(h))

	r := image.Rect(
		clampRound(x, w), clampRound(y, h),
		clampRound(x+bw, w), clampRound(y+bh, h),
	)
	if r.Empty() {
		return image.Rect(0, 0, w, h)
	}
	return r
}

func clampRound(v float64, hi int) int {
	n := int(math.Round(v))
	return min(max(n, 0), hi)
}

// Fit snaps box to the content found inside its search region of src.
// The match is the tight box around every qualifying pixel, grown by the
// pad and clamped to the image. When it fits inside the search region it
// is centered there at its own size. ok is false when the fit is disabled,
// misconfigured or finds fewer than MinPixels matches; box is then
// unchanged.
func Fit(src *image.NRGBA, box Box, cfg *FitConfig) (Box, bool) {
	if cfg == nil {
		return box, false
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return box, false
	}
	region := searchRegion(box, cfg, w, h)

	var match func(r, g, b uint8) bool
	switch cfg.Mode {
	case "luma":
		dark := !strings.EqualFold(cfg.Target, "light")
		threshold := cfg.Threshold
		match = func(r, g, b uint8) bool {
			l := 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
			if dark {
				return l <= threshold
			}
			return l >= threshold
		}
	case "color":
		if cfg.Color == nil {
			return box, false
		}
		c := *cfg.Color
		tol := math.Max(cfg.Tolerance, 0)
		match = func(r, g, b uint8) bool {
			d := max(absDiff(r, c.R), absDiff(g, c.G), absDiff(b, c.B))
			return float64(d) <= tol
		}
	default:
		return box, false
	}

	found := image.Rectangle{}
	count := 0
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		for x := region.Min.X; x < region.Max.X; x++ {
			p := src.Pix[row+x*4 : row+x*4+3 : row+x*4+3]
			if !match(p[0], p[1], p[2]) {
				continue
			}
			if count == 0 {
				found = image.Rect(x, y, x+1, y+1)
			} else {
				found = found.Union(image.Rect(x, y, x+1, y+1))
			}
			count++
		}
	}
	if count < max(cfg.MinPixels, 1) {
		return box, false
	}

	pad := int(math.Round(math.Max(cfg.Pad, 0)))
	found = image.Rect(found.Min.X-pad, found.Min.Y-pad, found.Max.X+pad, found.Max.Y+pad).
		Intersect(image.Rect(0, 0, w, h))
	if found.Empty() {
		return box, false
	}

	coverage := float64(found.Dx()*found.Dy()) / float64(max(region.Dx()*region.Dy(), 1))
	logging.Logger().Debug("auto-fit",
		"mode", cfg.Mode, "matches", count, "region", region, "found", found,
		"coverage", units.RoundTo(coverage, 4), "min_coverage", cfg.MinCoverage)

	if found.Dx() <= region.Dx() && found.Dy() <= region.Dy() {
		x0 := region.Min.X + (region.Dx()-found.Dx())/2
		y0 := region.Min.Y + (region.Dy()-found.Dy())/2
		found = image.Rect(x0, y0, x0+found.Dx(), y0+found.Dy())
	}

	return Box{
		X: ptr(float64(found.Min.X)),
		Y: ptr(float64(found.Min.Y)),
		W: ptr(float64(found.Dx())),
		H: ptr(float64(found.Dy())),
	}, true
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
