// Package regions finds clusters of changed pixels between two images and
// reports them as padded, ranked bounding boxes.
package regions

import (
	"fmt"
	"image"
	"sort"

	"vizloop/pkg/units"
)

// Rel is a bounding box normalized by the image width and height.
type Rel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ChangeRegion is a padded bounding box around one connected cluster of
// changed pixels. X2 and Y2 are exclusive.
type ChangeRegion struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	W        int     `json:"w"`
	H        int     `json:"h"`
	X2       int     `json:"x2"`
	Y2       int     `json:"y2"`
	Pixels   int     `json:"pixels"`
	Area     int     `json:"area"`
	Coverage float64 `json:"coverage"`
	Intent   string  `json:"intent"`
	Action   string  `json:"action"`
	ID       string  `json:"id"`
	Rel      Rel     `json:"rel"`
}

// Bounds returns the region as an image rectangle.
func (r ChangeRegion) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X2, r.Y2)
}

// DeltaMap holds one 8-bit delta per pixel in row-major order.
type DeltaMap struct {
	Width, Height int
	Pix           []uint8

	// Changed counts pixels with a nonzero delta; Sum is the total delta.
	Changed int
	Sum     int
}

// At returns the delta at (x, y).
func (d *DeltaMap) At(x, y int) uint8 {
	return d.Pix[y*d.Width+x]
}

// Delta computes max(|dR|, |dG|, |dB|) for every pixel. Alpha is ignored.
func Delta(baseline, current *image.NRGBA) (*DeltaMap, error) {
	bb := baseline.Bounds()
	cb := current.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		return nil, fmt.Errorf("delta map: sizes differ: %dx%d vs %dx%d", bb.Dx(), bb.Dy(), cb.Dx(), cb.Dy())
	}

	w, h := bb.Dx(), bb.Dy()
	d := &DeltaMap{Width: w, Height: h, Pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		ai := baseline.PixOffset(bb.Min.X, bb.Min.Y+y)
		bi := current.PixOffset(cb.Min.X, cb.Min.Y+y)
		for x := 0; x < w; x++ {
			a := baseline.Pix[ai+x*4 : ai+x*4+3]
			b := current.Pix[bi+x*4 : bi+x*4+3]
			v := maxInt(absInt(int(a[0])-int(b[0])), absInt(int(a[1])-int(b[1])), absInt(int(a[2])-int(b[2])))
			d.Pix[y*w+x] = uint8(v)
			d.Sum += v
			if v > 0 {
				d.Changed++
			}
		}
	}
	return d, nil
}

// Options controls extraction.
type Options struct {
	// Threshold: pixels with delta strictly above this value are active.
	Threshold uint8

	// MinPixels: components smaller than this are dropped. Values below 1
	// are treated as 1.
	MinPixels int

	// Pad: pixels added on every side of a component bbox, clamped to the image.
	Pad int

	// MaxBoxes: keep at most this many regions; 0 keeps all.
	MaxBoxes int
}

type component struct {
	minX, minY, maxX, maxY int
	pixels                 int
}

// Extract labels 4-connected components of the active mask, discards
// small ones and returns the rest ranked by pixel count. Equal counts keep
// their row-major discovery order, so the result is deterministic.
func Extract(d *DeltaMap, opts Options) []ChangeRegion {
	if d == nil || d.Width <= 0 || d.Height <= 0 {
		return nil
	}
	w, h := d.Width, d.Height
	minPixels := max(opts.MinPixels, 1)

	visited := make([]bool, w*h)
	active := func(i int) bool { return d.Pix[i] > opts.Threshold }

	var comps []component
	queue := make([]int, 0, 64)
	for start := range d.Pix {
		if visited[start] || !active(start) {
			continue
		}

		sx, sy := start%w, start/w
		c := component{minX: sx, minY: sy, maxX: sx, maxY: sy}
		visited[start] = true
		queue = append(queue[:0], start)

		for head := 0; head < len(queue); head++ {
			node := queue[head]
			cx, cy := node%w, node/w
			c.pixels++
			c.minX = min(c.minX, cx)
			c.maxX = max(c.maxX, cx)
			c.minY = min(c.minY, cy)
			c.maxY = max(c.maxY, cy)

			// Left, right, up, down.
			if cx > 0 {
				queue = visit(queue, visited, node-1, active)
			}
			if cx+1 < w {
				queue = visit(queue, visited, node+1, active)
			}
			if cy > 0 {
				queue = visit(queue, visited, node-w, active)
			}
			if cy+1 < h {
				queue = visit(queue, visited, node+w, active)
			}
		}

		if c.pixels < minPixels {
			continue
		}
		comps = append(comps, c)
	}

	sort.SliceStable(comps, func(i, j int) bool { return comps[i].pixels > comps[j].pixels })
	if opts.MaxBoxes > 0 && len(comps) > opts.MaxBoxes {
		comps = comps[:opts.MaxBoxes]
	}

	pad := max(opts.Pad, 0)
	out := make([]ChangeRegion, 0, len(comps))
	for i, c := range comps {
		x0 := max(c.minX-pad, 0)
		y0 := max(c.minY-pad, 0)
		x1 := min(c.maxX+pad, w-1)
		y1 := min(c.maxY+pad, h-1)
		bw := x1 - x0 + 1
		bh := y1 - y0 + 1
		area := bw * bh

		out = append(out, ChangeRegion{
			X:        x0,
			Y:        y0,
			W:        bw,
			H:        bh,
			X2:       x0 + bw,
			Y2:       y0 + bh,
			Pixels:   c.pixels,
			Area:     area,
			Coverage: units.RoundTo(float64(c.pixels)/float64(area), 4),
			Intent:   "changed-region",
			Action:   "inspect",
			ID:       fmt.Sprintf("change-%d", i+1),
			Rel: Rel{
				X: units.RoundTo(float64(x0)/float64(w), 6),
				Y: units.RoundTo(float64(y0)/float64(h), 6),
				W: units.RoundTo(float64(bw)/float64(w), 6),
				H: units.RoundTo(float64(bh)/float64(h), 6),
			},
		})
	}
	return out
}

func visit(queue []int, visited []bool, i int, active func(int) bool) []int {
	if visited[i] || !active(i) {
		return queue
	}
	visited[i] = true
	return append(queue, i)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
