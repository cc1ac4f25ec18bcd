package led

import (
	"image"
	"io"

	"golang.org/x/image/draw"

	"github.com/coreman2200/lumiplay/internal/layout"
	"github.com/coreman2200/lumiplay/internal/render"
)

// Sink is an LED output: a frame driver that holds a device or connection.
type Sink interface {
	render.Driver
	io.Closer
}

// Sampler resamples rendered frames onto an LED matrix and flattens the matrix into a
// single row in wiring order.
type Sampler struct {
	lay    layout.Layout
	matrix *image.RGBA
	line   *image.RGBA
}

func NewSampler(lay layout.Layout) *Sampler {
	return &Sampler{
		lay:    lay,
		matrix: image.NewRGBA(image.Rect(0, 0, lay.Dim.X, lay.Dim.Y)),
		line:   image.NewRGBA(image.Rect(0, 0, lay.Count(), 1)),
	}
}

func (s *Sampler) Count() int { return s.lay.Count() }

// Sample returns a 1×Count image; it is reused by the next call.
func (s *Sampler) Sample(src *image.RGBA) *image.RGBA {
	if src.Bounds().Size() == s.matrix.Bounds().Size() {
		draw.Copy(s.matrix, image.Point{}, src, src.Bounds(), draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(s.matrix, s.matrix.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	for y := 0; y < s.lay.Dim.Y; y++ {
		for x := 0; x < s.lay.Dim.X; x++ {
			i := s.lay.Index(x, y)
			s.line.SetRGBA(i, 0, s.matrix.RGBAAt(x, y))
		}
	}
	return s.line
}
