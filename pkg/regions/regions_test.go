package regions

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blankMap(w, h int) *DeltaMap {
	return &DeltaMap{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

func fillBlock(d *DeltaMap, x0, y0, w, h int, v uint8) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			d.Pix[y*d.Width+x] = v
		}
	}
}

func TestExtractSingleBlock(t *testing.T) {
	d := blankMap(100, 60)
	fillBlock(d, 30, 20, 20, 20, 255)

	got := Extract(d, Options{Threshold: 1, MinPixels: 10, Pad: 2})
	require.Len(t, got, 1)

	r := got[0]
	assert.LessOrEqual(t, r.X, 30)
	assert.LessOrEqual(t, r.Y, 20)
	assert.GreaterOrEqual(t, r.W, 20)
	assert.GreaterOrEqual(t, r.H, 20)
	assert.Equal(t, ChangeRegion{
		X: 28, Y: 18, W: 24, H: 24, X2: 52, Y2: 42,
		Pixels: 400, Area: 576, Coverage: 0.6944,
		Intent: "changed-region", Action: "inspect", ID: "change-1",
		Rel: Rel{X: 0.28, Y: 0.3, W: 0.24, H: 0.4},
	}, r)
}

func TestExtractPadClampsToImage(t *testing.T) {
	d := blankMap(10, 10)
	fillBlock(d, 0, 0, 3, 3, 200)
	fillBlock(d, 8, 8, 2, 2, 200)

	got := Extract(d, Options{Threshold: 0, MinPixels: 1, Pad: 5})
	require.Len(t, got, 2)
	assert.Equal(t, image.Rect(0, 0, 8, 8), got[0].Bounds())
	assert.Equal(t, image.Rect(3, 3, 10, 10), got[1].Bounds())
	for _, r := range got {
		assert.LessOrEqual(t, r.X2, 10)
		assert.LessOrEqual(t, r.Y2, 10)
	}
}

func TestExtractRankingAndTies(t *testing.T) {
	d := blankMap(40, 10)
	fillBlock(d, 30, 0, 2, 2, 90) // 4 px, discovered first
	fillBlock(d, 0, 5, 3, 3, 90)  // 9 px
	fillBlock(d, 10, 5, 2, 2, 90) // 4 px, discovered after the first 2x2

	got := Extract(d, Options{Threshold: 50, MinPixels: 1})
	require.Len(t, got, 3)
	assert.Equal(t, 9, got[0].Pixels)
	assert.Equal(t, 30, got[1].X, "equal counts keep row-major discovery order")
	assert.Equal(t, 10, got[2].X)
	assert.Equal(t, []string{"change-1", "change-2", "change-3"},
		[]string{got[0].ID, got[1].ID, got[2].ID})

	limited := Extract(d, Options{Threshold: 50, MinPixels: 1, MaxBoxes: 2})
	require.Len(t, limited, 2)
	assert.Equal(t, got[:2], limited)
}

func TestExtractFourConnectivity(t *testing.T) {
	d := blankMap(4, 4)
	// Diagonal neighbours only: four separate components.
	for i := 0; i < 4; i++ {
		d.Pix[i*4+i] = 255
	}
	got := Extract(d, Options{Threshold: 0, MinPixels: 1})
	assert.Len(t, got, 4)
}

func TestExtractThresholdAndMinimum(t *testing.T) {
	d := blankMap(20, 20)
	fillBlock(d, 2, 2, 5, 5, 24)
	fillBlock(d, 10, 10, 2, 2, 255)

	assert.Empty(t, Extract(d, Options{Threshold: 24, MinPixels: 5}),
		"delta equal to threshold is inactive; 4 px block is below minimum")
	assert.Len(t, Extract(d, Options{Threshold: 23, MinPixels: 5}), 1)
	assert.Empty(t, Extract(blankMap(5, 5), Options{}))
	assert.Nil(t, Extract(&DeltaMap{}, Options{}))
}

func TestExtractDeterministic(t *testing.T) {
	d := blankMap(50, 50)
	fillBlock(d, 1, 1, 4, 4, 100)
	fillBlock(d, 20, 5, 4, 4, 100)
	fillBlock(d, 5, 30, 6, 2, 100)
	opts := Options{Threshold: 10, MinPixels: 1, Pad: 1}
	assert.Equal(t, Extract(d, opts), Extract(d, opts))
}

func TestDelta(t *testing.T) {
	a := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	b := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	a.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	b.SetNRGBA(0, 0, color.NRGBA{R: 15, G: 5, B: 30, A: 255})
	a.SetNRGBA(1, 0, color.NRGBA{A: 255})
	b.SetNRGBA(1, 0, color.NRGBA{A: 0})

	d, err := Delta(a, b)
	require.NoError(t, err)
	assert.Equal(t, []uint8{15, 0, 0}, d.Pix, "alpha is ignored")
	assert.Equal(t, 1, d.Changed)
	assert.Equal(t, 15, d.Sum)
	assert.Equal(t, uint8(15), d.At(0, 0))

	_, err = Delta(a, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	assert.Error(t, err)
}
