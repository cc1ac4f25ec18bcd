package playback

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Infinite repeats the animation until it is stopped.
const Infinite = -1

// NoReschedule is the frame interval of a window that holds a single frame.
const NoReschedule int64 = -1

// MaxInterval is the longest frame interval in ms; it still fits a time.Duration.
const MaxInterval = int64((1<<63 - 1) / time.Millisecond)

var (
	// ErrInvalidArgument reports a rejected parameter; the state is left unchanged.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState reports an operation on a released or unloaded animation.
	ErrInvalidState = errors.New("invalid state")
)

// RepeatMode selects what happens when playback reaches a bound of the frame window.
type RepeatMode int

const (
	// Restart jumps back to the first frame on every new cycle.
	Restart RepeatMode = iota + 1
	// Reverse flips direction on every cycle, bouncing between the bounds.
	Reverse
)

func (m RepeatMode) String() string {
	switch m {
	case Restart:
		return "restart"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("RepeatMode(%d)", int(m))
	}
}

// ParseRepeatMode accepts "restart" or "reverse" (case-insensitive).
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "restart", "":
		return Restart, nil
	case "reverse":
		return Reverse, nil
	default:
		return 0, fmt.Errorf("repeat mode %q: %w", s, ErrInvalidArgument)
	}
}

// AdvanceResult is the outcome of one Advance call.
type AdvanceResult int

const (
	Continuing AdvanceResult = iota
	Repeated
	Ended
)

func (r AdvanceResult) String() string {
	switch r {
	case Continuing:
		return "continuing"
	case Repeated:
		return "repeated"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Params is the initial parameter set of an animation, as read from configuration.
type Params struct {
	FirstFrame int
	// LastFrame < 0 selects the document frame count.
	LastFrame   int
	Speed       float64
	RepeatMode  RepeatMode
	RepeatCount int
	FrameStep   int
	AutoPlay    bool
}

// DefaultParams plays the whole document once, forward, at normal speed.
func DefaultParams() Params {
	return Params{
		FirstFrame:  0,
		LastFrame:   -1,
		Speed:       1,
		RepeatMode:  Restart,
		RepeatCount: 0,
		FrameStep:   1,
		AutoPlay:    true,
	}
}

// Listener is notified of animation lifecycle events.
type Listener interface {
	OnAnimationStart()
	// OnAnimationEnd is never invoked for an Infinite repeat count.
	OnAnimationEnd()
	OnAnimationRepeat()
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Start  func()
	Repeat func()
	End    func()
}

func (l ListenerFuncs) OnAnimationStart() {
	if l.Start != nil {
		l.Start()
	}
}

func (l ListenerFuncs) OnAnimationRepeat() {
	if l.Repeat != nil {
		l.Repeat()
	}
}

func (l ListenerFuncs) OnAnimationEnd() {
	if l.End != nil {
		l.End()
	}
}

// Host runs scheduled ticks. Callbacks must execute one at a time on a single logical thread.
type Host interface {
	// PostDelayed runs fn after d. The returned cancel prevents fn from running if it has
	// not started yet.
	PostDelayed(d time.Duration, fn func()) (cancel func())
}

// Clock measures render time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TickStats describes one completed tick.
type TickStats struct {
	Frame  int
	Result AdvanceResult
	// Finished is set on the tick that ended the run, not on ticks of a held end.
	Finished bool
	Render   time.Duration
	// Delay is the wait before the next tick; negative when nothing was scheduled.
	Delay time.Duration
}

// Observer receives per-tick statistics, e.g. for metrics.
type Observer interface {
	ObserveTick(TickStats)
}
