package fake

import (
	"image"

	"github.com/rs/zerolog"
)

// Driver logs a compact summary of every Every-th frame (first pixel & avg), useful for
// headless runs.
type Driver struct {
	Log   zerolog.Logger
	Every int
	Count int
}

func (d *Driver) Write(img *image.RGBA) error {
	d.Count++
	if d.Every > 1 && d.Count%d.Every != 1 {
		return nil
	}
	r, g, b := Average(img)
	var first [3]uint8
	if len(img.Pix) >= 3 {
		first = [3]uint8{img.Pix[0], img.Pix[1], img.Pix[2]}
	}
	d.Log.Info().
		Int("frame", d.Count).
		Ints("size", []int{img.Bounds().Dx(), img.Bounds().Dy()}).
		Floats64("avg", []float64{r, g, b}).
		Uints8("first", first[:]).
		Msg("present")
	return nil
}

// Average is the mean RGB of img in 0..255.
func Average(img *image.RGBA) (r, g, b float64) {
	n := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r += float64(img.Pix[i])
		g += float64(img.Pix[i+1])
		b += float64(img.Pix[i+2])
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	return r / float64(n), g / float64(n), b / float64(n)
}
