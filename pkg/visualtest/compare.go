package visualtest

import (
	"image"
	"os"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
	"vizloop/pkg/images"
	"vizloop/pkg/logging"
	"vizloop/pkg/regions"
	"vizloop/pkg/render"
	"vizloop/pkg/units"
)

// Options configures a diff run
type Options struct {
	// Threshold: a pixel is part of a change region when its delta exceeds this (0-255)
	Threshold uint8

	// MinArea: connected clusters with fewer changed pixels are ignored
	MinArea int

	// Pad: pixels added around every region bbox, clamped to the image
	Pad int

	// MaxBoxes: keep only the largest regions; 0 keeps all
	MaxBoxes int

	// Resize: resample current to the baseline size instead of failing
	Resize bool

	// Output paths. Empty paths are not written.
	DiffOut         string
	JSONOut         string
	AnnotatedOut    string
	AnnotateSpecOut string
	SheetOut        string
}

// DefaultOptions returns the stock region settings
func DefaultOptions() Options {
	return Options{
		Threshold: 24,
		MinArea:   64,
		Pad:       2,
		MaxBoxes:  16,
	}
}

// Size is an image size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Report is the diff report document. Optional paths are null when the
// output was not requested.
type Report struct {
	Baseline          string                 `json:"baseline"`
	Current           string                 `json:"current"`
	DiffImage         *string                `json:"diff_image"`
	AnnotatedImage    *string                `json:"annotated_image"`
	AnnotateSpec      *string                `json:"annotate_spec"`
	PercentChanged    float64                `json:"percent_changed"`
	AvgDiffPercent    float64                `json:"avg_diff_percent"`
	Size              Size                   `json:"size"`
	Resized           bool                   `json:"resized"`
	ChangeRegions     []regions.ChangeRegion `json:"change_regions"`
	ChangeRegionCount int                    `json:"change_region_count"`
	SheetImage        *string                `json:"sheet_image,omitempty"`
}

// Comparison is the in-memory result of comparing two equally sized
// images.
type Comparison struct {
	Delta          *regions.DeltaMap
	Regions        []regions.ChangeRegion
	PercentChanged float64
	AvgDiffPercent float64
}

// Compare measures how current differs from baseline and extracts the
// ranked change regions.
func Compare(baseline, current *image.NRGBA, opts Options) (*Comparison, error) {
	bb, cb := baseline.Bounds(), current.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		return nil, errs.SizeMismatch(bb.Dx(), bb.Dy(), cb.Dx(), cb.Dy())
	}
	d, err := regions.Delta(baseline, current)
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		Delta: d,
		Regions: regions.Extract(d, regions.Options{
			Threshold: opts.Threshold,
			MinPixels: opts.MinArea,
			Pad:       opts.Pad,
			MaxBoxes:  opts.MaxBoxes,
		}),
	}
	if c.Regions == nil {
		c.Regions = []regions.ChangeRegion{}
	}
	if total := d.Width * d.Height; total > 0 {
		c.PercentChanged = units.RoundTo(float64(d.Changed)/float64(total)*100, 3)
		c.AvgDiffPercent = units.RoundTo(float64(d.Sum)/(255*float64(total))*100, 3)
	}
	return c, nil
}

// Run compares two image files and writes the requested outputs. Nothing
// is written when loading or comparing fails.
func Run(baselinePath, currentPath string, opts Options) (*Report, error) {
	if !fileio.Available(baselinePath) {
		return nil, errs.Input("baseline not found", baselinePath, nil)
	}
	if !fileio.Available(currentPath) {
		return nil, errs.Input("current not found", currentPath, nil)
	}
	baseline, err := images.LoadNRGBA(baselinePath)
	if err != nil {
		return nil, err
	}
	current, err := images.LoadNRGBA(currentPath)
	if err != nil {
		return nil, err
	}

	resized := false
	bw, bh := baseline.Bounds().Dx(), baseline.Bounds().Dy()
	if current.Bounds().Dx() != bw || current.Bounds().Dy() != bh {
		if !opts.Resize {
			return nil, errs.SizeMismatch(bw, bh, current.Bounds().Dx(), current.Bounds().Dy())
		}
		logging.Logger().Info("resizing current to baseline size",
			"from", current.Bounds().Size(), "to", baseline.Bounds().Size())
		current = images.Resize(current, bw, bh)
		resized = true
	}

	cmp, err := Compare(baseline, current, opts)
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("diff computed",
		"percent_changed", cmp.PercentChanged, "regions", len(cmp.Regions))

	report := &Report{
		Baseline:          fileio.Abs(baselinePath),
		Current:           fileio.Abs(currentPath),
		PercentChanged:    cmp.PercentChanged,
		AvgDiffPercent:    cmp.AvgDiffPercent,
		Size:              Size{Width: bw, Height: bh},
		Resized:           resized,
		ChangeRegions:     cmp.Regions,
		ChangeRegionCount: len(cmp.Regions),
	}

	// Every output is built before the first write; a failed write removes
	// the files written before it.
	var outs []output
	var heat *image.NRGBA
	if opts.DiffOut != "" || opts.SheetOut != "" {
		heat = render.Heatmap(current, cmp.Delta)
	}
	if opts.DiffOut != "" {
		outs = append(outs, pngOutput(opts.DiffOut, heat))
		report.DiffImage = absPtr(opts.DiffOut)
	}
	if opts.AnnotateSpecOut != "" {
		data, err := fileio.Marshal(BuildAnnotateSpec(cmp.Regions))
		if err != nil {
			return nil, err
		}
		outs = append(outs, dataOutput(opts.AnnotateSpecOut, data))
		report.AnnotateSpec = absPtr(opts.AnnotateSpecOut)
	}
	if opts.AnnotatedOut != "" {
		outs = append(outs, pngOutput(opts.AnnotatedOut, render.Boxes(current, cmp.Regions)))
		report.AnnotatedImage = absPtr(opts.AnnotatedOut)
	}
	if opts.SheetOut != "" {
		sheet := render.Sheet([]render.Panel{
			{Label: "baseline", Image: baseline},
			{Label: "current", Image: current},
			{Label: "diff", Image: heat},
		}, cmp.Regions)
		outs = append(outs, pngOutput(opts.SheetOut, sheet))
		report.SheetImage = absPtr(opts.SheetOut)
	}
	if opts.JSONOut != "" {
		data, err := fileio.Marshal(report)
		if err != nil {
			return nil, err
		}
		outs = append(outs, dataOutput(opts.JSONOut, data))
	}
	if err := writeAll(outs); err != nil {
		return nil, err
	}
	return report, nil
}

func absPtr(path string) *string {
	abs := fileio.Abs(path)
	return &abs
}

type output struct {
	path  string
	write func() error
}

func pngOutput(path string, img image.Image) output {
	return output{path, func() error { return images.SavePNG(path, img) }}
}

func dataOutput(path string, data []byte) output {
	return output{path, func() error { return fileio.WriteAtomic(path, data) }}
}

func writeAll(outs []output) error {
	for i, o := range outs {
		if err := o.write(); err != nil {
			for _, done := range outs[:i] {
				if rmErr := os.Remove(done.path); rmErr != nil {
					logging.Logger().Warn("cannot remove partial output", "path", done.path, "err", rmErr)
				}
			}
			return err
		}
	}
	return nil
}

