// Package capture grabs a display or a rectangle of the screen into a PNG
// with a JSON sidecar describing what was captured.
package capture

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbinani/screenshot"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
	"vizloop/pkg/images"
	"vizloop/pkg/logging"
)

// ErrNoDisplay is returned when no active display can be captured.
var ErrNoDisplay = errors.New("no active display")

// Grabber reads pixels from the screen.
type Grabber interface {
	NumDisplays() int
	Bounds(display int) image.Rectangle
	Capture(r image.Rectangle) (*image.RGBA, error)
}

type screenGrabber struct{}

func (screenGrabber) NumDisplays() int { return screenshot.NumActiveDisplays() }

func (screenGrabber) Bounds(display int) image.Rectangle {
	return screenshot.GetDisplayBounds(display)
}

func (screenGrabber) Capture(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Screen is the Grabber backed by the system displays.
var Screen Grabber = screenGrabber{}

// Options selects what to capture and where to write it.
type Options struct {
	Output  string
	Display int
	// Rect limits the capture to part of the display, in display
	// coordinates. The zero value captures the whole display.
	Rect image.Rectangle
	Step string
	Note string
	// Sidecar overrides the metadata path; empty means next to Output.
	Sidecar   string
	NoSidecar bool
	Now       func() time.Time
}

// Bounds is a captured rectangle in screen coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Record is the capture sidecar document.
type Record struct {
	Path       string  `json:"path"`
	Display    int     `json:"display"`
	Bounds     Bounds  `json:"bounds"`
	CapturedAt string  `json:"captured_at"`
	Step       *string `json:"step"`
	Note       *string `json:"note"`
	Sidecar    *string `json:"sidecar,omitempty"`
}

// Slug turns a label into a file name stem: lowercase letters, digits,
// '.', '_' and '-' are kept, whitespace becomes '-', the rest is dropped.
// An empty result becomes "app".
func Slug(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "app"
	}
	return b.String()
}

// DefaultPath is <outRoot>/captures/<slug>-<timestamp>.png.
func DefaultPath(outRoot, label string, ts time.Time) string {
	name := fmt.Sprintf("%s-%s.png", Slug(label), ts.UTC().Format("20060102-150405"))
	return filepath.Join(outRoot, "captures", name)
}

// Region resolves the rectangle to grab on the display. A set rect is
// offset by the display origin and clipped to it.
func Region(display image.Rectangle, rect image.Rectangle) (image.Rectangle, error) {
	if rect.Empty() {
		return display, nil
	}
	r := rect.Add(display.Min).Intersect(display)
	if r.Empty() {
		return image.Rectangle{}, errs.Input("capture rect outside display", "", fmt.Errorf("%v not within %v", rect, display))
	}
	return r, nil
}

// Capture grabs the selected display region with g and writes the PNG
// and, unless disabled, its sidecar next to it.
func Capture(g Grabber, opts Options) (*Record, error) {
	if opts.Output == "" {
		return nil, errs.Input("capture output path required", "", nil)
	}
	n := g.NumDisplays()
	if n == 0 {
		return nil, ErrNoDisplay
	}
	if opts.Display < 0 || opts.Display >= n {
		return nil, errs.Input("capture display out of range", "", fmt.Errorf("display %d, %d active", opts.Display, n))
	}
	region, err := Region(g.Bounds(opts.Display), opts.Rect)
	if err != nil {
		return nil, err
	}

	img, err := g.Capture(region)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", opts.Display, err)
	}
	if err := images.SavePNG(opts.Output, img); err != nil {
		return nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	rec := &Record{
		Path:    fileio.Abs(opts.Output),
		Display: opts.Display,
		Bounds: Bounds{
			X:      region.Min.X,
			Y:      region.Min.Y,
			Width:  region.Dx(),
			Height: region.Dy(),
		},
		CapturedAt: now().UTC().Format(time.RFC3339),
		Step:       optional(opts.Step),
		Note:       optional(opts.Note),
	}
	logging.Logger().Info("screen captured", "path", rec.Path, "display", opts.Display, "bounds", region)

	if !opts.NoSidecar {
		side := opts.Sidecar
		if side == "" {
			side = fileio.SidecarPath(opts.Output)
		}
		rec.Sidecar = optional(fileio.Abs(side))
		if err := fileio.WriteJSON(side, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
