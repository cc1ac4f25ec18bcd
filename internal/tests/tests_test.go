package tests

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/lumiplay/internal/layout"
)

func lit(img *image.RGBA) []image.Point {
	var out []image.Point
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R+c.G+c.B > 0 {
				out = append(out, image.Pt(x, y))
			}
		}
	}
	return out
}

func TestIndexSweepFollowsWiring(t *testing.T) {
	l := layout.Layout{Dim: layout.Dim{X: 3, Y: 2}, Order: layout.Serpentine{XFlipEveryRow: true}}
	r := NewRunner(Plan{Kind: IndexSweep, Layout: l})
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))

	var order []image.Point
	for r.Step(img) {
		p := lit(img)
		require.Len(t, p, 1)
		order = append(order, p[0])
	}
	assert.Equal(t, []image.Point{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {1, 1}, {0, 1}}, order)
}

func TestRGBAndRowSweep(t *testing.T) {
	l := layout.Layout{Dim: layout.Dim{X: 2, Y: 3}}
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))

	r := NewRunner(Plan{Kind: RGBTest, Layout: l})
	require.True(t, r.Step(img))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(1, 2))
	require.True(t, r.Step(img))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(0, 0))

	r = NewRunner(Plan{Kind: RowSweep, Layout: l})
	n := 0
	for r.Step(img) {
		assert.Len(t, lit(img), 2)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("row_sweep")
	require.NoError(t, err)
	assert.Equal(t, RowSweep, k)
	_, err = ParseKind("plane_z")
	assert.Error(t, err)
}
