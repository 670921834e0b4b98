package capture

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vizloop/pkg/errs"
	"vizloop/pkg/images"
)

type fakeGrabber struct {
	displays []image.Rectangle
	grabbed  image.Rectangle
}

func (f *fakeGrabber) NumDisplays() int { return len(f.displays) }

func (f *fakeGrabber) Bounds(display int) image.Rectangle { return f.displays[display] }

func (f *fakeGrabber) Capture(r image.Rectangle) (*image.RGBA, error) {
	f.grabbed = r
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, color.RGBA{10, 20, 30, 255})
		}
	}
	return img, nil
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Safari", "safari"},
		{"My App 2", "my-app-2"},
		{"build_v1.2-rc", "build_v1.2-rc"},
		{"  ", "app"},
		{"☃!", "app"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestDefaultPath(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "captures", "my-app-20260304-050607.png"), DefaultPath("out", "My App", ts))
}

func TestRegion(t *testing.T) {
	display := image.Rect(1920, 0, 3840, 1080)

	r, err := Region(display, image.Rectangle{})
	require.NoError(t, err)
	assert.Equal(t, display, r)

	r, err = Region(display, image.Rect(10, 10, 110, 60))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(1930, 10, 2030, 60), r)

	r, err = Region(display, image.Rect(1900, 1000, 2000, 1200))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(3820, 1000, 3840, 1080), r)

	_, err = Region(display, image.Rect(5000, 5000, 5100, 5100))
	assert.True(t, errors.Is(err, errs.ErrInput))
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	g := &fakeGrabber{displays: []image.Rectangle{image.Rect(0, 0, 40, 30)}}
	out := filepath.Join(dir, "shots", "step1.png")

	rec, err := Capture(g, Options{
		Output: out,
		Rect:   image.Rect(5, 5, 25, 15),
		Step:   "login",
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(5, 5, 25, 15), g.grabbed)
	assert.Equal(t, Bounds{X: 5, Y: 5, Width: 20, Height: 10}, rec.Bounds)
	assert.Equal(t, "2026-01-02T03:04:05Z", rec.CapturedAt)
	assert.Nil(t, rec.Note)
	require.NotNil(t, rec.Step)
	assert.Equal(t, "login", *rec.Step)

	img, err := images.LoadNRGBA(out)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, img.NRGBAAt(img.Bounds().Min.X, img.Bounds().Min.Y))

	data, err := os.ReadFile(filepath.Join(dir, "shots", "step1.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "login", doc["step"])
	assert.Nil(t, doc["note"])
	assert.Contains(t, doc, "note")
	assert.Equal(t, float64(0), doc["display"])
}

func TestCaptureErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Capture(&fakeGrabber{}, Options{Output: filepath.Join(dir, "a.png")})
	assert.ErrorIs(t, err, ErrNoDisplay)

	g := &fakeGrabber{displays: []image.Rectangle{image.Rect(0, 0, 10, 10)}}
	_, err = Capture(g, Options{Output: filepath.Join(dir, "a.png"), Display: 1})
	assert.ErrorIs(t, err, errs.ErrInput)

	_, err = Capture(g, Options{})
	assert.ErrorIs(t, err, errs.ErrInput)

	_, err = Capture(g, Options{Output: filepath.Join(dir, "b.png"), NoSidecar: true})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "b.json"))
	assert.True(t, os.IsNotExist(err))
}
