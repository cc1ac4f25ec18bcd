package playback

import (
	"fmt"
	"time"

	"github.com/coreman2200/lumiplay/internal/render"
)

// Scheduler drives a State on a host tick loop: it renders the current frame, presents
// it on the canvas, advances the state, notifies the listener and re-arms itself
// compensating for render time. All methods must be called from the host's thread.
type Scheduler struct {
	state  *State
	canvas render.Driver
	host   Host
	clock  Clock

	listener Listener
	observer Observer
	onError  func(error)

	// cancel of the single pending tick, nil when none is armed.
	pending func()

	Last TickStats
}

// NewScheduler binds s to a host. canvas may be nil for headless playback.
func NewScheduler(s *State, canvas render.Driver, host Host) *Scheduler {
	return &Scheduler{
		state:  s,
		canvas: canvas,
		host:   host,
		clock:  systemClock{},
	}
}

// SetClock replaces the clock used to measure render time.
func (sc *Scheduler) SetClock(c Clock) {
	if c == nil {
		c = systemClock{}
	}
	sc.clock = c
}

// SetListener replaces the listener; nil removes it. Takes effect on the next dispatch.
func (sc *Scheduler) SetListener(l Listener) { sc.listener = l }

func (sc *Scheduler) SetObserver(o Observer) { sc.observer = o }

// SetErrorHandler receives render errors raised by scheduled ticks.
func (sc *Scheduler) SetErrorHandler(fn func(error)) { sc.onError = fn }

func (sc *Scheduler) SetCanvas(c render.Driver) { sc.canvas = c }

func (sc *Scheduler) State() *State { return sc.state }

func (sc *Scheduler) valid() bool { return sc.state != nil && sc.state.Valid() }

// Start plays the window from its first frame and ticks as soon as possible.
func (sc *Scheduler) Start() {
	if !sc.valid() {
		return
	}
	sc.state.Start()
	sc.invalidate()
}

func (sc *Scheduler) Stop() {
	if !sc.valid() {
		return
	}
	sc.state.Stop()
	sc.cancelPending()
}

func (sc *Scheduler) Pause() {
	if !sc.valid() {
		return
	}
	sc.state.Pause()
	sc.cancelPending()
}

// Resume continues from the current frame without resetting repeat bookkeeping.
func (sc *Scheduler) Resume() {
	if !sc.valid() {
		return
	}
	sc.state.Resume()
	sc.invalidate()
}

func (sc *Scheduler) IsRunning() bool { return sc.valid() && sc.state.Running() }

// Resize sets the buffer size. It is a no-op on a released animation.
func (sc *Scheduler) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("size %dx%d: %w", width, height, ErrInvalidArgument)
	}
	if !sc.valid() {
		return nil
	}
	return sc.state.resize(width, height)
}

// Release cancels any pending tick and frees the renderer handle.
func (sc *Scheduler) Release() {
	sc.cancelPending()
	if sc.state != nil {
		sc.state.Release()
	}
}

// Tick renders one frame and schedules the next. It is a no-op unless the animation is
// valid and running. A render error ends the current run and is returned.
func (sc *Scheduler) Tick() error {
	sc.pending = nil
	if !sc.valid() || !sc.state.Running() {
		return nil
	}
	st := sc.state
	if !st.started {
		st.started = true
		sc.dispatch(Listener.OnAnimationStart)
	}

	t0 := sc.clock.Now()
	frame := st.CurrentFrame()
	if err := sc.present(frame); err != nil {
		st.ended = true
		st.running = false
		return fmt.Errorf("frame %d: %w", frame, err)
	}

	res := st.Advance()
	finished := false
	switch res {
	case Ended:
		if !st.ended {
			st.ended = true
			finished = true
			sc.dispatch(Listener.OnAnimationEnd)
		}
	case Repeated:
		sc.dispatch(Listener.OnAnimationRepeat)
	}
	t1 := sc.clock.Now()

	stats := TickStats{Frame: frame, Result: res, Finished: finished, Render: t1.Sub(t0), Delay: -1}
	if res != Ended {
		if d, ok := sc.nextDelay(t1.Sub(t0)); ok {
			stats.Delay = d
			sc.schedule(d)
		}
	}
	sc.Last = stats
	if sc.observer != nil {
		sc.observer.ObserveTick(stats)
	}
	return nil
}

func (sc *Scheduler) present(frame int) error {
	img, err := sc.state.handle.RenderFrame(frame)
	if err != nil {
		return err
	}
	if sc.canvas == nil || img == nil {
		return nil
	}
	return sc.canvas.Write(img)
}

// nextDelay is the remaining frame budget after elapsed, clamped at zero. Late frames are
// never skipped.
func (sc *Scheduler) nextDelay(elapsed time.Duration) (time.Duration, bool) {
	interval := sc.state.nextInterval()
	if interval == NoReschedule {
		return 0, false
	}
	delay := interval - elapsed.Milliseconds()
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay) * time.Millisecond, true
}

func (sc *Scheduler) dispatch(fn func(Listener)) {
	if sc.listener != nil {
		fn(sc.listener)
	}
}

func (sc *Scheduler) invalidate() { sc.schedule(0) }

func (sc *Scheduler) schedule(d time.Duration) {
	sc.cancelPending()
	if sc.host == nil {
		return
	}
	sc.pending = sc.host.PostDelayed(d, sc.tickFromHost)
}

func (sc *Scheduler) tickFromHost() {
	if err := sc.Tick(); err != nil && sc.onError != nil {
		sc.onError(err)
	}
}

func (sc *Scheduler) cancelPending() {
	if sc.pending != nil {
		sc.pending()
		sc.pending = nil
	}
}
