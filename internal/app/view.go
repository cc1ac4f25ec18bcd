package app

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coreman2200/lumiplay/internal/config"
	diag "github.com/coreman2200/lumiplay/internal/diagnostics"
	"github.com/coreman2200/lumiplay/internal/layout"
	"github.com/coreman2200/lumiplay/internal/playback"
	"github.com/coreman2200/lumiplay/internal/render"
)

// View hosts one animation the way a widget does: the animation is created when the view
// is attached and a source is set, and released on detach. All methods must be called on
// the host loop.
type View struct {
	id       string
	renderer render.Renderer
	canvas   render.Driver
	host     playback.Host
	log      zerolog.Logger

	source   []byte
	params   playback.Params
	width    int
	height   int
	drift    bool
	order    layout.Serpentine
	attached bool
	test     *wiringTest

	sched    *playback.Scheduler
	listener playback.Listener
	observer playback.Observer
	events   func(diag.Diagnostic)
	// brightness is forwarded to the engine when the canvas is one.
	brightness func(float64)
}

type ViewOptions struct {
	Params            playback.Params
	Width, Height     int
	DriftCompensation bool
	// Order is the strip wiring used by test patterns.
	Order layout.Serpentine
}

func NewView(r render.Renderer, canvas render.Driver, host playback.Host, log zerolog.Logger, o ViewOptions) *View {
	id := uuid.New().String()
	if o.Width <= 0 {
		o.Width = config.DefaultSize
	}
	if o.Height <= 0 {
		o.Height = config.DefaultSize
	}
	v := &View{
		id:       id,
		renderer: r,
		canvas:   canvas,
		host:     host,
		log:      log.With().Str("instance", id).Logger(),
		params:   o.Params,
		width:    o.Width,
		height:   o.Height,
		drift:    o.DriftCompensation,
		order:    o.Order,
	}
	if e, ok := canvas.(*render.Engine); ok {
		v.brightness = e.SetBrightness
	}
	return v
}

func (v *View) ID() string { return v.id }

// SetListener replaces the listener of the current and any later animation.
func (v *View) SetListener(l playback.Listener) { v.listener = l }

func (v *View) SetObserver(o playback.Observer) {
	v.observer = o
	if v.sched != nil {
		v.sched.SetObserver(o)
	}
}

// SetEvents receives a diagnostic for every lifecycle event and render error.
func (v *View) SetEvents(fn func(diag.Diagnostic)) { v.events = fn }

// SetSource replaces the animation document. An attached view releases the current
// animation and loads the new one immediately.
func (v *View) SetSource(doc []byte) error {
	v.source = doc
	if !v.attached {
		return nil
	}
	v.release()
	return v.load()
}

func (v *View) Attach() error {
	if v.attached {
		return nil
	}
	v.attached = true
	if v.source == nil {
		return nil
	}
	return v.load()
}

func (v *View) Detach() {
	v.stopTest()
	v.attached = false
	v.release()
}

func (v *View) Attached() bool { return v.attached }

// Scheduler is nil while no animation is loaded.
func (v *View) Scheduler() *playback.Scheduler { return v.sched }

func (v *View) load() error {
	st, err := playback.Load(v.renderer, v.source, v.params)
	if err != nil {
		v.log.Error().Err(err).Msg("load animation")
		v.emit(diag.FromError(err, nil))
		return fmt.Errorf("load %s document: %w", v.renderer.Name(), err)
	}
	st.SetDriftCompensation(v.drift)

	sc := playback.NewScheduler(st, v.canvas, v.host)
	sc.SetListener(v)
	sc.SetObserver(v.observer)
	sc.SetErrorHandler(v.renderFailed)
	if err := sc.Resize(v.width, v.height); err != nil {
		sc.Release()
		return fmt.Errorf("size %dx%d: %w", v.width, v.height, err)
	}
	v.sched = sc

	v.log.Info().
		Int("frames", st.FrameCount()).
		Int64("duration_ms", st.Duration()).
		Int64("interval_ms", st.FrameInterval()).
		Msg("animation loaded")
	if st.AutoPlay() {
		sc.Start()
	}
	return nil
}

func (v *View) release() {
	if v.sched == nil {
		return
	}
	v.sched.Release()
	v.sched = nil
	v.log.Debug().Msg("animation released")
}

func (v *View) renderFailed(err error) {
	v.log.Error().Err(err).Msg("render")
	if o, ok := v.observer.(interface{ RenderError() }); ok {
		o.RenderError()
	}
	v.emit(diag.FromError(err, map[string]any{"instance": v.id}))
}

func (v *View) emit(d diag.Diagnostic) {
	if v.events != nil {
		v.events(d)
	}
}

func (v *View) event(name string) {
	ev := v.log.Debug()
	evidence := map[string]any{"instance": v.id}
	if v.sched != nil {
		st := v.sched.State()
		ev = ev.Int("frame", st.CurrentFrame()).Int("repeats", st.RepeatsCompleted())
		evidence["frame"] = st.CurrentFrame()
		evidence["repeats"] = st.RepeatsCompleted()
	}
	ev.Msg(name)
	v.emit(diag.Event(name, evidence))
}

func (v *View) OnAnimationStart() {
	v.event("start")
	if v.listener != nil {
		v.listener.OnAnimationStart()
	}
}

func (v *View) OnAnimationRepeat() {
	v.event("repeat")
	if v.listener != nil {
		v.listener.OnAnimationRepeat()
	}
}

func (v *View) OnAnimationEnd() {
	v.event("end")
	if v.listener != nil {
		v.listener.OnAnimationEnd()
	}
}

func (v *View) Start() {
	v.stopTest()
	if v.sched != nil {
		v.sched.Start()
	}
}

func (v *View) Stop() {
	if v.sched != nil {
		v.sched.Stop()
	}
}

func (v *View) Pause() {
	if v.sched != nil {
		v.sched.Pause()
	}
}

func (v *View) Resume() {
	v.stopTest()
	if v.sched != nil {
		v.sched.Resume()
	}
}

func (v *View) IsRunning() bool { return v.sched != nil && v.sched.IsRunning() }

// Resize is kept for the next load when no animation is live.
func (v *View) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("size %dx%d: %w", w, h, playback.ErrInvalidArgument)
	}
	v.width, v.height = w, h
	if v.sched == nil {
		return nil
	}
	return v.sched.Resize(w, h)
}

func (v *View) SetSpeed(s float64) error {
	if v.sched != nil {
		if err := v.sched.State().SetSpeed(s); err != nil {
			return err
		}
	} else if !(s > 0) {
		return fmt.Errorf("speed %v: %w", s, playback.ErrInvalidArgument)
	}
	v.params.Speed = s
	return nil
}

func (v *View) SetRepeatCount(n int) error {
	if v.sched != nil {
		if err := v.sched.State().SetRepeatCount(n); err != nil {
			return err
		}
	} else if n < playback.Infinite {
		return fmt.Errorf("repeat count %d: %w", n, playback.ErrInvalidArgument)
	}
	v.params.RepeatCount = n
	return nil
}

func (v *View) SetRepeatMode(m playback.RepeatMode) error {
	if v.sched != nil {
		if err := v.sched.State().SetRepeatMode(m); err != nil {
			return err
		}
	} else if m != playback.Restart && m != playback.Reverse {
		return fmt.Errorf("repeat mode %v: %w", m, playback.ErrInvalidArgument)
	}
	v.params.RepeatMode = m
	return nil
}

// SetFrameWindow requires a loaded animation; the bounds are clamped to its frame count.
func (v *View) SetFrameWindow(first, last int) error {
	if v.sched == nil {
		return fmt.Errorf("frame window: %w", playback.ErrInvalidState)
	}
	st := v.sched.State()
	st.SetFrameWindow(first, last)
	v.params.FirstFrame, v.params.LastFrame = st.FirstFrame(), st.LastFrame()
	return nil
}

func (v *View) SetBrightness(b float64) {
	if v.brightness != nil {
		v.brightness(b)
	}
}

// Params is the parameter set the next load would use, including changes made through
// the setters.
func (v *View) Params() playback.Params { return v.params }

func (v *View) Size() (w, h int) { return v.width, v.height }

func (v *View) Snapshot() playback.Snapshot {
	if v.sched == nil {
		return playback.Snapshot{RepeatMode: v.params.RepeatMode.String(), Speed: v.params.Speed}
	}
	return v.sched.State().Snapshot()
}
