// Package tests generates wiring test patterns shown in place of the animation.
package tests

import (
	"fmt"
	"image"
	"image/color"

	"github.com/coreman2200/lumiplay/internal/layout"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
	RowSweep   Kind = "row_sweep"
)

// ParseKind rejects unknown pattern names.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case IndexSweep, RGBTest, RowSweep:
		return k, nil
	}
	return None, fmt.Errorf("unknown test pattern %q", s)
}

type Plan struct {
	Kind   Kind
	Layout layout.Layout
}

type Runner struct {
	plan Plan
	step int
	pos  []image.Point // LED index -> pixel
}

func NewRunner(plan Plan) *Runner {
	l := plan.Layout
	pos := make([]image.Point, l.Count())
	for y := 0; y < l.Dim.Y; y++ {
		for x := 0; x < l.Dim.X; x++ {
			pos[l.Index(x, y)] = image.Pt(x, y)
		}
	}
	return &Runner{plan: plan, pos: pos}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Steps is the length of the pattern.
func (r *Runner) Steps() int {
	switch r.plan.Kind {
	case IndexSweep:
		return len(r.pos)
	case RGBTest:
		return 3 * 10
	case RowSweep:
		return r.plan.Layout.Dim.Y
	}
	return 0
}

// Step fills img with the next pattern frame; returns false when complete.
func (r *Runner) Step(img *image.RGBA) bool {
	if r.step >= r.Steps() {
		return false
	}
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	switch r.plan.Kind {
	case IndexSweep:
		p := r.pos[r.step]
		img.SetRGBA(p.X, p.Y, white)
	case RGBTest:
		c := [3]color.RGBA{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}}[r.step%3]
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	case RowSweep:
		for x := 0; x < r.plan.Layout.Dim.X; x++ {
			img.SetRGBA(x, r.step, white)
		}
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	r.step++
	return true
}
