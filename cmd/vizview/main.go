package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"vizloop/pkg/baseline"
	"vizloop/pkg/config"
	"vizloop/pkg/images"
	"vizloop/pkg/render"
	"vizloop/pkg/visualtest"
)

// view is one baseline/current pair prepared for display.
type view struct {
	baseline  image.Image
	current   image.Image
	heatmap   image.Image
	annotated image.Image
	summary   string
}

func load(baselinePath, currentPath string, opts visualtest.Options) (*view, error) {
	base, err := images.LoadNRGBA(baselinePath)
	if err != nil {
		return nil, err
	}
	cur, err := images.LoadNRGBA(currentPath)
	if err != nil {
		return nil, err
	}
	if opts.Resize && base.Bounds().Size() != cur.Bounds().Size() {
		cur = images.Resize(cur, base.Bounds().Dx(), base.Bounds().Dy())
	}
	cmp, err := visualtest.Compare(base, cur, opts)
	if err != nil {
		return nil, err
	}
	return &view{
		baseline:  base,
		current:   cur,
		heatmap:   render.Heatmap(cur, cmp.Delta),
		annotated: render.Boxes(cur, cmp.Regions),
		summary: fmt.Sprintf("%.3f%% changed, %d region(s)",
			cmp.PercentChanged, len(cmp.Regions)),
	}, nil
}

func main() {
	configPath := flag.String("config", "", "config file")
	name := flag.String("name", "", "show the latest capture of a loop baseline")
	resize := flag.Bool("resize", false, "resize current to the baseline size")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vizview [flags] <baseline.png> <current.png>\n       vizview [flags] -name <baseline-name>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var baselinePath, currentPath string
	switch {
	case *name != "":
		store := &baseline.Store{Root: baseline.ResolveDir(cfg.OutRoot, cfg.LoopDir)}
		p := store.Paths(*name, time.Time{})
		baselinePath, currentPath = p.Baseline, p.Latest
	case flag.NArg() == 2:
		baselinePath, currentPath = flag.Arg(0), flag.Arg(1)
	default:
		flag.Usage()
		os.Exit(1)
	}

	opts := visualtest.DefaultOptions()
	opts.Threshold = uint8(cfg.Diff.Threshold)
	opts.MinArea = cfg.Diff.MinArea
	opts.Pad = cfg.Diff.Pad
	opts.MaxBoxes = cfg.Diff.MaxBoxes
	opts.Resize = *resize || cfg.Diff.Resize

	v, err := load(baselinePath, currentPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	a := app.New()
	w := a.NewWindow("vizview")
	b := v.baseline.Bounds()
	w.Resize(fyne.NewSize(float32(min(b.Dx(), 1280)), float32(min(b.Dy(), 800)+80)))

	panel := func(img image.Image) fyne.CanvasObject {
		ci := canvas.NewImageFromImage(img)
		ci.FillMode = canvas.ImageFillContain
		return ci
	}
	tabs := container.NewAppTabs(
		container.NewTabItem("Annotated", panel(v.annotated)),
		container.NewTabItem("Diff", panel(v.heatmap)),
		container.NewTabItem("Current", panel(v.current)),
		container.NewTabItem("Baseline", panel(v.baseline)),
	)

	status := widget.NewLabel(v.summary)
	content := container.NewBorder(nil, status, nil, nil, tabs)
	w.SetContent(content)
	w.SetTitle(fmt.Sprintf("vizview: %s", currentPath))
	w.ShowAndRun()
}
