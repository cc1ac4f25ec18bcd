package keyframe

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

var black = colorful.Color{}

func (l *Layer) active(t float64) bool {
	if t < l.In {
		return false
	}
	return l.Out <= 0 || t < l.Out
}

func (l *Layer) bounds(canvas image.Rectangle) image.Rectangle {
	if l.Rect == [4]float64{} {
		return canvas
	}
	w, h := float64(canvas.Dx()), float64(canvas.Dy())
	r := image.Rect(
		int(math.Round(l.Rect[0]*w)),
		int(math.Round(l.Rect[1]*h)),
		int(math.Round((l.Rect[0]+l.Rect[2])*w)),
		int(math.Round((l.Rect[1]+l.Rect[3])*h)),
	)
	return r.Add(canvas.Min).Intersect(canvas)
}

func drawLayer(dst *image.RGBA, l *Layer, t float64) {
	if !l.active(t) {
		return
	}
	alpha := clamp01(l.Opacity.Eval(t, 1))
	if alpha == 0 {
		return
	}
	r := l.bounds(dst.Bounds())
	if r.Empty() {
		return
	}
	from := l.Color.Eval(t, black)
	if l.Kind == Solid {
		fill(dst, r, from, alpha)
		return
	}
	to := l.To.Eval(t, black)

	cx := float64(r.Min.X+r.Max.X-1) / 2
	cy := float64(r.Min.Y+r.Max.Y-1) / 2
	radius := math.Hypot(float64(r.Dx())/2, float64(r.Dy())/2)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			var u float64
			if l.Kind == Linear {
				if r.Dx() > 1 {
					u = float64(x-r.Min.X) / float64(r.Dx()-1)
				}
			} else if radius > 0 {
				u = clamp01(math.Hypot(float64(x)-cx, float64(y)-cy) / radius)
			}
			over(dst, x, y, from.BlendHcl(to, u).Clamped(), alpha)
		}
	}
}

func fill(dst *image.RGBA, r image.Rectangle, c colorful.Color, alpha float64) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			over(dst, x, y, c, alpha)
		}
	}
}

// over composites c at alpha onto an opaque destination pixel.
func over(dst *image.RGBA, x, y int, c colorful.Color, alpha float64) {
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]
	r, g, b := c.RGB255()
	p[0] = mix(p[0], r, alpha)
	p[1] = mix(p[1], g, alpha)
	p[2] = mix(p[2], b, alpha)
	p[3] = 0xff
}

func mix(a, b uint8, alpha float64) uint8 {
	if alpha >= 1 {
		return b
	}
	return uint8(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
