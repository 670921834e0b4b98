package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"vizloop/pkg/annotate"
	"vizloop/pkg/baseline"
	"vizloop/pkg/capture"
	"vizloop/pkg/config"
	"vizloop/pkg/fileio"
	"vizloop/pkg/logging"
	"vizloop/pkg/visualtest"
)

// errUsage marks a bad command line; the flag package already printed why.
var errUsage = errors.New("usage")

type command struct {
	name        string
	description string
	run         func(app *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"commands", "List supported commands in JSON.", runCommands},
		{"spec-help", "Print the annotation spec schema.", runSpecHelp},
		{"annotate", "Render annotation specs with semantic fields and relative units.", runAnnotate},
		{"diff", "Compare screenshots and emit diff-to-bbox annotation specs.", runDiff},
		{"loop", "Run baseline/history diff loops with auto-annotated change boxes.", runLoop},
		{"capture", "Capture a display and emit a metadata JSON sidecar.", runCapture},
	}
}

// Swapped out by tests.
var (
	grabber capture.Grabber = capture.Screen
	now                     = time.Now
)

type app struct {
	cfg     *config.Config
	stdout  io.Writer
	stderr  io.Writer
	grabber capture.Grabber
	now     func() time.Time
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("vizloop", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "config file (default ./vizloop.yaml when present)")
	logLevel := global.String("log-level", "", "debug, info, warn or error")
	logFormat := global.String("log-format", "", "text or json")
	global.Usage = func() { usage(global) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if global.NArg() == 0 {
		usage(global)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	logging.SetLogger(logging.New(stderr, cfg.Log.Level, cfg.Log.Format))

	a := &app{cfg: cfg, stdout: stdout, stderr: stderr, grabber: grabber, now: now}
	name, rest := global.Arg(0), global.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(a, rest); err != nil {
			if errors.Is(err, errUsage) {
				return 2
			}
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "error: unknown command %q\n", name)
	return 2
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "Usage: vizloop [global flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fs.PrintDefaults()
}

func (a *app) flags(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: vizloop %s %s\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parse accepts flags before, between and after positional arguments.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func wantArgs(fs *flag.FlagSet, got []string, n int) error {
	if len(got) != n {
		fmt.Fprintf(fs.Output(), "expected %d argument(s), got %d\n", n, len(got))
		fs.Usage()
		return errUsage
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runCommands(a *app, args []string) error {
	type row struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	rows := make([]row, 0, len(commands))
	for _, c := range commands {
		rows = append(rows, row{c.name, c.description})
	}
	data, err := fileio.Marshal(map[string]any{"commands": rows})
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(data)
	return err
}

func runSpecHelp(a *app, args []string) error {
	_, err := fmt.Fprintln(a.stdout, annotate.SpecHelp)
	return err
}

func runAnnotate(a *app, args []string) error {
	fs := a.flags("annotate", "<input.png> <output.png> --spec <spec.json|->")
	spec := fs.String("spec", "", "annotation spec path, URL, or - for stdin (.json, .yaml or .js)")
	metaOut := fs.String("meta-out", "", "metadata sidecar path (default <output>.json)")
	noMeta := fs.Bool("no-meta", false, "do not write the metadata sidecar")
	specHelp := fs.Bool("spec-help", false, "print the spec schema and exit")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *specHelp {
		return runSpecHelp(a, nil)
	}
	if err := wantArgs(fs, pos, 2); err != nil {
		return err
	}
	if *spec == "" {
		fmt.Fprintln(a.stderr, "--spec is required")
		fs.Usage()
		return errUsage
	}

	res, err := annotate.RenderFile(annotate.FileOptions{
		Input:  pos[0],
		Spec:   *spec,
		Output: pos[1],
		Meta:   *metaOut,
		NoMeta: *noMeta,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, res.OutputPath)
	return err
}

// diffFlags registers the region flags shared by diff and loop, defaulted
// from config.
func (a *app) diffFlags(fs *flag.FlagSet) func() (visualtest.Options, error) {
	d := a.cfg.Diff
	threshold := fs.Int("bbox-threshold", d.Threshold, "pixel delta above which a pixel counts as changed (0-255)")
	minArea := fs.Int("bbox-min-area", d.MinArea, "minimum changed pixels per region")
	pad := fs.Int("bbox-pad", d.Pad, "padding around each region")
	maxBoxes := fs.Int("max-boxes", d.MaxBoxes, "maximum number of regions (0 keeps all)")
	resize := fs.Bool("resize", d.Resize, "resize current to the baseline size when dimensions differ")
	return func() (visualtest.Options, error) {
		if *threshold < 0 || *threshold > 255 {
			return visualtest.Options{}, fmt.Errorf("--bbox-threshold must be 0-255, got %d", *threshold)
		}
		if *minArea < 0 || *pad < 0 || *maxBoxes < 0 {
			return visualtest.Options{}, errors.New("--bbox-min-area, --bbox-pad and --max-boxes must not be negative")
		}
		return visualtest.Options{
			Threshold: uint8(*threshold),
			MinArea:   *minArea,
			Pad:       *pad,
			MaxBoxes:  *maxBoxes,
			Resize:    *resize,
		}, nil
	}
}

func runDiff(a *app, args []string) error {
	fs := a.flags("diff", "<baseline.png> <current.png>")
	options := a.diffFlags(fs)
	diffOut := fs.String("diff-out", "", "heatmap image path")
	jsonOut := fs.String("json-out", "", "report JSON path")
	annotatedOut := fs.String("annotated-out", "", "current image with change boxes")
	specOut := fs.String("annotate-spec-out", "", "annotation spec boxing every change")
	sheetOut := fs.String("sheet-out", "", "baseline/current/diff review sheet")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(fs, pos, 2); err != nil {
		return err
	}
	opts, err := options()
	if err != nil {
		return err
	}
	opts.DiffOut = *diffOut
	opts.JSONOut = *jsonOut
	opts.AnnotatedOut = *annotatedOut
	opts.AnnotateSpecOut = *specOut
	opts.SheetOut = *sheetOut

	report, err := visualtest.Run(pos[0], pos[1], opts)
	if err != nil {
		return err
	}
	return a.printJSON(report)
}

func runLoop(a *app, args []string) error {
	fs := a.flags("loop", "<current.png> <baseline-name>")
	options := a.diffFlags(fs)
	loopDir := fs.String("loop-dir", a.cfg.LoopDir, "loop storage directory (default <out_root>/loop)")
	update := fs.Bool("update-baseline", false, "replace the baseline with current after diffing")
	noAnnotated := fs.Bool("no-annotated", false, "skip the annotated image and change spec")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(fs, pos, 2); err != nil {
		return err
	}
	diff, err := options()
	if err != nil {
		return err
	}

	store, err := baseline.Open(baseline.ResolveDir(a.cfg.OutRoot, *loopDir))
	if err != nil {
		return err
	}
	res, err := store.Run(pos[0], pos[1], baseline.Options{
		Diff:           diff,
		UpdateBaseline: *update,
		NoAnnotated:    *noAnnotated,
		Now:            a.now,
	})
	if err != nil {
		return err
	}
	return a.printJSON(res.Value())
}

func runCapture(a *app, args []string) error {
	fs := a.flags("capture", "[output.png]")
	out := fs.String("out", "", "output PNG path (default <out_root>/captures/<label>-<time>.png)")
	label := fs.String("label", "", "file name label for the default output path")
	display := fs.Int("display", a.cfg.Capture.Display, "display index")
	rect := fs.String("rect", "", "capture only x,y,w,h of the display")
	step := fs.String("step", "", "workflow step label stored in metadata (e.g. before/after)")
	note := fs.String("note", "", "free-form note stored in metadata")
	sidecar := fs.String("sidecar", "", "metadata sidecar path (default <out>.json)")
	noSidecar := fs.Bool("no-sidecar", false, "do not write the metadata sidecar")
	asJSON := fs.Bool("json", false, "print capture metadata JSON instead of the path")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(pos) > 1 {
		return wantArgs(fs, pos, 1)
	}

	output := *out
	if output == "" && len(pos) == 1 {
		output = pos[0]
	}
	if output == "" {
		output = capture.DefaultPath(a.cfg.OutRoot, *label, a.now())
	}
	r, err := parseRect(*rect)
	if err != nil {
		return err
	}

	rec, err := capture.Capture(a.grabber, capture.Options{
		Output:    output,
		Display:   *display,
		Rect:      r,
		Step:      *step,
		Note:      *note,
		Sidecar:   *sidecar,
		NoSidecar: *noSidecar,
		Now:       a.now,
	})
	if err != nil {
		return err
	}
	if *asJSON {
		return a.printJSON(rec)
	}
	_, err = fmt.Fprintln(a.stdout, rec.Path)
	return err
}

// parseRect reads "x,y,w,h".
func parseRect(s string) (image.Rectangle, error) {
	if s == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("--rect wants x,y,w,h, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("--rect wants x,y,w,h, got %q", s)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("--rect width and height must be positive, got %q", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
