package app

import (
	"image"
	"time"

	diag "github.com/coreman2200/lumiplay/internal/diagnostics"
	"github.com/coreman2200/lumiplay/internal/layout"
	"github.com/coreman2200/lumiplay/internal/tests"
)

// TestStep is the time each wiring test pattern frame stays on the canvas.
const TestStep = 100 * time.Millisecond

type wiringTest struct {
	runner *tests.Runner
	img    *image.RGBA
	cancel func()
}

// RunTest pauses playback and shows a wiring test pattern on the canvas. An empty kind
// aborts a running test. Playback is left paused when the pattern completes.
func (v *View) RunTest(kind string) error {
	v.stopTest()
	if kind == "" {
		return nil
	}
	k, err := tests.ParseKind(kind)
	if err != nil {
		return err
	}
	if v.sched != nil {
		v.sched.Pause()
	}
	l := layout.Layout{Dim: layout.Dim{X: v.width, Y: v.height}, Order: v.order}
	v.test = &wiringTest{
		runner: tests.NewRunner(tests.Plan{Kind: k, Layout: l}),
		img:    image.NewRGBA(image.Rect(0, 0, v.width, v.height)),
	}
	v.log.Info().Str("pattern", kind).Msg("wiring test")
	v.testStep()
	return nil
}

func (v *View) testStep() {
	t := v.test
	if t == nil {
		return
	}
	if !t.runner.Step(t.img) {
		v.test = nil
		v.log.Info().Str("pattern", string(t.runner.Kind())).Msg("wiring test done")
		v.emit(diag.Event("test.done", map[string]any{"instance": v.id, "pattern": string(t.runner.Kind())}))
		return
	}
	if err := v.canvas.Write(t.img); err != nil {
		v.log.Warn().Err(err).Msg("test pattern write")
	}
	t.cancel = v.host.PostDelayed(TestStep, v.testStep)
}

func (v *View) stopTest() {
	if v.test == nil {
		return
	}
	if v.test.cancel != nil {
		v.test.cancel()
	}
	v.test = nil
}

// Testing reports whether a wiring test pattern is on the canvas.
func (v *View) Testing() bool { return v.test != nil }
