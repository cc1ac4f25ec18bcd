package render

import (
	"errors"
	"image"
	"image/draw"
	"time"
)

// Engine is the canvas a scheduler presents on. It copies each frame, applies brightness
// and the LED limits, then writes the result to every attached driver.
type Engine struct {
	Drivers    []Driver
	Brightness float64
	Limits     Limits

	out *image.RGBA

	// metrics (last durations in ms)
	Last struct {
		PostMS  float64
		WriteMS float64
		TotalMS float64
		Frames  uint64
	}
}

// NewEngine returns an Engine at full brightness writing to drvs. Nil drivers are skipped.
func NewEngine(drvs ...Driver) *Engine {
	e := &Engine{Brightness: 1}
	for _, d := range drvs {
		e.Attach(d)
	}
	return e
}

func (e *Engine) Attach(d Driver) {
	if d != nil {
		e.Drivers = append(e.Drivers, d)
	}
}

// SetBrightness clamps b into 0..1.
func (e *Engine) SetBrightness(b float64) {
	if b < 0 {
		b = 0
	}
	if b > 1 {
		b = 1
	}
	e.Brightness = b
}

// Write post-processes a private copy of img, so the renderer buffer is never modified.
// Every driver is written even if an earlier one fails; the errors are joined.
func (e *Engine) Write(img *image.RGBA) error {
	if img == nil {
		return nil
	}
	start := time.Now()

	if e.out == nil || e.out.Bounds() != img.Bounds() {
		e.out = image.NewRGBA(img.Bounds())
	}
	draw.Draw(e.out, e.out.Bounds(), img, img.Bounds().Min, draw.Src)
	Scale(e.out, e.Brightness)
	Limit(e.out, e.Limits)
	e.Last.PostMS = msSince(start)

	writeStart := time.Now()
	var errs []error
	for _, d := range e.Drivers {
		if err := d.Write(e.out); err != nil {
			errs = append(errs, err)
		}
	}
	e.Last.WriteMS = msSince(writeStart)
	e.Last.TotalMS = msSince(start)
	e.Last.Frames++
	return errors.Join(errs...)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
