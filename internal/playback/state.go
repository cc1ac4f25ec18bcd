package playback

import (
	"fmt"
	"math"

	"github.com/coreman2200/lumiplay/internal/render"
)

// State is the playback model of one animation: frame window, repeat bookkeeping,
// speed and the derived tick interval. It owns the renderer handle.
// State performs no I/O and is not safe for concurrent use.
type State struct {
	handle     render.Handle
	frameCount int
	duration   int64 // ms

	width, height int

	firstFrame int
	lastFrame  int
	frame      int

	speed       float64
	repeatMode  RepeatMode
	repeatCount int
	repeats     int
	frameStep   int
	direction   int

	interval int64   // ms, truncated
	exact    float64 // ms, untruncated
	drift    bool
	carry    float64

	autoPlay bool

	running bool
	started bool
	ended   bool
	// held is set once the run reached its terminal condition.
	held bool
}

// Load decodes doc with r and wraps the handle in a State configured with p.
// A document that fails to decode yields no State.
func Load(r render.Renderer, doc []byte, p Params) (*State, error) {
	h, err := r.Load(doc)
	if err != nil {
		return nil, err
	}
	s := NewState(h)
	if err := s.Configure(p); err != nil {
		h.Release()
		return nil, err
	}
	return s, nil
}

// NewState wraps an already loaded handle with default parameters: the whole document,
// forward, once, at normal speed.
func NewState(h render.Handle) *State {
	s := &State{
		handle:     h,
		speed:      1,
		repeatMode: Restart,
		frameStep:  1,
		direction:  1,
		autoPlay:   true,
	}
	if h != nil {
		s.frameCount = h.FrameCount()
		s.duration = h.Duration()
	}
	s.lastFrame = s.frameCount
	s.updateFrameInterval()
	return s
}

// Configure applies an initial parameter set. Invalid values leave the state unchanged.
func (s *State) Configure(p Params) error {
	if !(p.Speed > 0) || math.IsInf(p.Speed, 0) {
		return fmt.Errorf("speed %v: %w", p.Speed, ErrInvalidArgument)
	}
	if p.RepeatCount < Infinite {
		return fmt.Errorf("repeat count %d: %w", p.RepeatCount, ErrInvalidArgument)
	}
	if p.FrameStep < 1 {
		return fmt.Errorf("frame step %d: %w", p.FrameStep, ErrInvalidArgument)
	}
	if p.RepeatMode != Restart && p.RepeatMode != Reverse {
		return fmt.Errorf("repeat mode %v: %w", p.RepeatMode, ErrInvalidArgument)
	}
	last := p.LastFrame
	if last < 0 {
		last = s.frameCount
	}
	s.SetFrameWindow(p.FirstFrame, last)
	_ = s.SetSpeed(p.Speed)
	_ = s.SetRepeatMode(p.RepeatMode)
	_ = s.SetRepeatCount(p.RepeatCount)
	_ = s.SetFrameStep(p.FrameStep)
	s.autoPlay = p.AutoPlay
	return nil
}

// Valid reports whether the renderer handle is live.
func (s *State) Valid() bool {
	return s.handle != nil && s.handle.Valid()
}

// Release frees the renderer handle. Further calls are no-ops.
func (s *State) Release() {
	if s.handle == nil {
		return
	}
	s.handle.Release()
	s.handle = nil
	s.running = false
}

// Clone returns an independent copy with its own handle, loaded from the same document.
// Run state (frame, flags, repeats) is not copied.
func (s *State) Clone() (*State, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("clone: %w", ErrInvalidState)
	}
	h, err := s.handle.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	c := NewState(h)
	c.SetFrameWindow(s.firstFrame, s.lastFrame)
	c.speed = s.speed
	c.repeatMode = s.repeatMode
	c.repeatCount = s.repeatCount
	c.frameStep = s.frameStep
	c.drift = s.drift
	c.autoPlay = s.autoPlay
	c.updateFrameInterval()
	if s.width > 0 && s.height > 0 {
		if err := c.resize(s.width, s.height); err != nil {
			c.Release()
			return nil, fmt.Errorf("clone: %w", err)
		}
	}
	return c, nil
}

func (s *State) FrameCount() int { return s.frameCount }

// Duration is the document length in milliseconds.
func (s *State) Duration() int64 {
	if !s.Valid() {
		return 0
	}
	return s.duration
}

// SetFrameWindow sets the played window. last is bounded by the document frame count,
// then first by last. Out of range values are clamped, never rejected.
func (s *State) SetFrameWindow(first, last int) {
	last = clamp(last, 0, s.frameCount)
	first = clamp(first, 0, last)
	s.firstFrame, s.lastFrame = first, last
	s.frame = clamp(s.frame, first, last)
	s.updateFrameInterval()
}

func (s *State) SetFirstFrame(first int) { s.SetFrameWindow(first, s.lastFrame) }

func (s *State) SetLastFrame(last int) { s.SetFrameWindow(s.firstFrame, last) }

func (s *State) FirstFrame() int { return s.firstFrame }

func (s *State) LastFrame() int { return s.lastFrame }

func (s *State) SetSpeed(v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("speed %v: %w", v, ErrInvalidArgument)
	}
	s.speed = v
	s.updateFrameInterval()
	return nil
}

func (s *State) Speed() float64 { return s.speed }

func (s *State) SetRepeatMode(m RepeatMode) error {
	switch m {
	case Restart:
		s.direction = 1
	case Reverse:
	default:
		return fmt.Errorf("repeat mode %v: %w", m, ErrInvalidArgument)
	}
	s.repeatMode = m
	return nil
}

func (s *State) RepeatMode() RepeatMode { return s.repeatMode }

// SetRepeatCount sets the number of extra cycles after the first; Infinite repeats forever.
// The completed count restarts at zero, so an ended run plays on after Resume.
func (s *State) SetRepeatCount(n int) error {
	if n < Infinite {
		return fmt.Errorf("repeat count %d: %w", n, ErrInvalidArgument)
	}
	s.repeatCount = n
	s.repeats = 0
	s.held = false
	s.ended = false
	return nil
}

func (s *State) RepeatCount() int { return s.repeatCount }

// RepeatsCompleted is the number of wraps in the current run.
func (s *State) RepeatsCompleted() int { return s.repeats }

// SetFrameStep sets how many frames a single tick advances.
func (s *State) SetFrameStep(n int) error {
	if n < 1 {
		return fmt.Errorf("frame step %d: %w", n, ErrInvalidArgument)
	}
	s.frameStep = n
	return nil
}

func (s *State) FrameStep() int { return s.frameStep }

// SetDriftCompensation carries the fractional millisecond lost to interval truncation
// over to the following ticks.
func (s *State) SetDriftCompensation(on bool) {
	s.drift = on
	s.carry = 0
}

func (s *State) AutoPlay() bool { return s.autoPlay }

// FrameInterval is the wall-clock time between ticks in milliseconds, or NoReschedule.
func (s *State) FrameInterval() int64 { return s.interval }

// nextInterval returns the delay budget of the coming tick.
func (s *State) nextInterval() int64 {
	if s.interval == NoReschedule || !s.drift {
		return s.interval
	}
	s.carry += s.exact - float64(s.interval)
	extra := int64(s.carry)
	s.carry -= float64(extra)
	if s.interval > MaxInterval-extra {
		return MaxInterval
	}
	return s.interval + extra
}

func (s *State) updateFrameInterval() {
	span := int64(s.lastFrame - s.firstFrame)
	if span <= 0 {
		s.interval = NoReschedule
		s.exact = 0
		return
	}
	s.interval = capInterval(float64(s.duration/span) / s.speed)
	s.exact = math.Min(float64(s.duration)/float64(span)/s.speed, float64(MaxInterval))
	s.carry = 0
}

// capInterval truncates ms to whole milliseconds, saturating at MaxInterval.
func capInterval(ms float64) int64 {
	if ms >= float64(MaxInterval) {
		return MaxInterval
	}
	return int64(ms)
}

func (s *State) Width() int { return s.width }

func (s *State) Height() int { return s.height }

func (s *State) resize(width, height int) error {
	if width == s.width && height == s.height {
		return nil
	}
	if err := s.handle.Resize(width, height); err != nil {
		return err
	}
	s.width, s.height = width, height
	return nil
}

func (s *State) Start() {
	s.running = true
	s.ended = false
	s.started = false
	s.held = false
	s.repeats = 0
	s.direction = 1
	s.carry = 0
	s.frame = s.firstFrame
}

func (s *State) Stop() { s.running = false }

func (s *State) Pause() { s.running = false }

func (s *State) Resume() { s.running = true }

func (s *State) Running() bool { return s.running }

func (s *State) Started() bool { return s.started }

func (s *State) Ended() bool { return s.ended }

func (s *State) CurrentFrame() int { return s.frame }

// Advance moves to the frame to render on the next tick.
func (s *State) Advance() AdvanceResult {
	if s.firstFrame == s.lastFrame || s.held {
		s.held = true
		return Ended
	}
	next := s.frame + s.frameStep*s.direction
	wrapped := false
	dir := s.direction
	switch {
	case next > s.lastFrame:
		wrapped = true
		if s.repeatMode == Reverse {
			next = s.lastFrame
			dir = -1
		} else {
			next = s.firstFrame
		}
	case next < s.firstFrame:
		wrapped = true
		next = s.firstFrame
		dir = 1
	}
	if !wrapped {
		s.frame = next
		return Continuing
	}
	if s.repeatCount != Infinite && s.repeats == s.repeatCount {
		s.held = true
		return Ended
	}
	s.repeats++
	s.frame = next
	s.direction = dir
	return Repeated
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Snapshot is a read-only view of the state for status endpoints.
type Snapshot struct {
	Valid       bool    `json:"valid"`
	Running     bool    `json:"running"`
	Started     bool    `json:"started"`
	Ended       bool    `json:"ended"`
	Frame       int     `json:"frame"`
	FirstFrame  int     `json:"first_frame"`
	LastFrame   int     `json:"last_frame"`
	FrameCount  int     `json:"frame_count"`
	DurationMS  int64   `json:"duration_ms"`
	Speed       float64 `json:"speed"`
	RepeatMode  string  `json:"repeat_mode"`
	RepeatCount int     `json:"repeat_count"`
	Repeats     int     `json:"repeats"`
	IntervalMS  int64   `json:"interval_ms"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Valid:       s.Valid(),
		Running:     s.running,
		Started:     s.started,
		Ended:       s.ended,
		Frame:       s.frame,
		FirstFrame:  s.firstFrame,
		LastFrame:   s.lastFrame,
		FrameCount:  s.frameCount,
		DurationMS:  s.Duration(),
		Speed:       s.speed,
		RepeatMode:  s.repeatMode.String(),
		RepeatCount: s.repeatCount,
		Repeats:     s.repeats,
		IntervalMS:  s.interval,
		Width:       s.width,
		Height:      s.height,
	}
}
