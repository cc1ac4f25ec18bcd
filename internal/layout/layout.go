// Package layout maps matrix pixel coordinates onto the wiring order of an LED strip.
package layout

type Dim struct{ X, Y int }

type Serpentine struct {
	XFlipEveryRow bool `yaml:"x_flip_every_row"`
	YFlip         bool `yaml:"y_flip"`
}

type Layout struct {
	Dim   Dim
	Order Serpentine
}

// Index maps x,y -> linear LED index (0..N-1)
func (l Layout) Index(x, y int) int {
	yy := y
	if l.Order.YFlip {
		yy = l.Dim.Y - 1 - y
	}
	xx := x
	if (yy%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	return yy*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y
}
