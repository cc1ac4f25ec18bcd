package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/lumiplay/internal/render"
)

func newState(t *testing.T, frames int, duration int64) *State {
	t.Helper()
	s := NewState(newFakeHandle(frames, duration))
	require.True(t, s.Valid())
	return s
}

// drive advances from Start and returns every frame that would have been rendered.
func drive(s *State, max int) ([]int, []AdvanceResult) {
	s.Start()
	var frames []int
	var results []AdvanceResult
	for i := 0; i < max; i++ {
		frames = append(frames, s.CurrentFrame())
		r := s.Advance()
		results = append(results, r)
		if r == Ended {
			break
		}
	}
	return frames, results
}

func TestFrameWindowClamps(t *testing.T) {
	var tests = []struct {
		first, last         int
		wantFirst, wantLast int
	}{
		{0, 60, 0, 60},
		{-5, 100, 0, 60},
		{10, 20, 10, 20},
		{50, 10, 10, 10},
		{70, 80, 60, 60},
		{5, -3, 0, 0},
	}
	for _, tt := range tests {
		s := newState(t, 60, 2000)
		s.SetFrameWindow(tt.first, tt.last)
		assert.Equal(t, tt.wantFirst, s.FirstFrame(), "first for (%d,%d)", tt.first, tt.last)
		assert.Equal(t, tt.wantLast, s.LastFrame(), "last for (%d,%d)", tt.first, tt.last)
		assert.LessOrEqual(t, s.FirstFrame(), s.CurrentFrame())
		assert.LessOrEqual(t, s.CurrentFrame(), s.LastFrame())
	}
}

func TestSetFirstAndLastKeepOtherBound(t *testing.T) {
	s := newState(t, 60, 2000)
	s.SetFirstFrame(12)
	assert.Equal(t, 12, s.FirstFrame())
	assert.Equal(t, 60, s.LastFrame())
	s.SetLastFrame(30)
	assert.Equal(t, 12, s.FirstFrame())
	assert.Equal(t, 30, s.LastFrame())
	s.SetLastFrame(5)
	assert.Equal(t, 5, s.FirstFrame())
	assert.Equal(t, 5, s.LastFrame())
}

func TestRestartSequence(t *testing.T) {
	s := newState(t, 3, 300)
	require.NoError(t, s.SetRepeatCount(1))

	frames, results := drive(s, 100)
	assert.Equal(t, []int{0, 1, 2, 3, 0, 1, 2, 3}, frames)
	assert.Equal(t, []AdvanceResult{
		Continuing, Continuing, Continuing, Repeated,
		Continuing, Continuing, Continuing, Ended,
	}, results)
	assert.Equal(t, 3, s.CurrentFrame())
	assert.Equal(t, 1, s.RepeatsCompleted())
}

func TestReverseBounce(t *testing.T) {
	s := newState(t, 3, 300)
	require.NoError(t, s.SetRepeatMode(Reverse))
	require.NoError(t, s.SetRepeatCount(2))

	// The run ends holding frame 3 (lastFrame): the third pass is forward again and the
	// terminal check happens when it would bounce.
	frames, results := drive(s, 100)
	assert.Equal(t, []int{0, 1, 2, 3, 3, 2, 1, 0, 0, 1, 2, 3}, frames)
	assert.Equal(t, Ended, results[len(results)-1])
	assert.Equal(t, 2, countResult(results, Repeated))
	assert.Equal(t, 3, s.CurrentFrame())
}

func TestRepeatCountRendersNPlusOneWindows(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		s := newState(t, 10, 1000)
		require.NoError(t, s.SetRepeatCount(n))
		frames, results := drive(s, 1000)
		assert.Equal(t, (n+1)*11, len(frames), "repeatCount %d", n)
		assert.Equal(t, n, countResult(results, Repeated), "repeatCount %d", n)
		assert.Equal(t, Ended, results[len(results)-1])
	}
}

func TestInfiniteNeverEnds(t *testing.T) {
	s := newState(t, 10, 1000)
	require.NoError(t, s.SetRepeatCount(Infinite))
	_, results := drive(s, 5000)
	assert.Len(t, results, 5000)
	assert.Zero(t, countResult(results, Ended))
}

func TestEndedIsSticky(t *testing.T) {
	s := newState(t, 2, 200)
	_, results := drive(s, 100)
	require.Equal(t, Ended, results[len(results)-1])
	frame := s.CurrentFrame()
	for i := 0; i < 3; i++ {
		assert.Equal(t, Ended, s.Advance())
		assert.Equal(t, frame, s.CurrentFrame())
	}
	s.Start()
	assert.Equal(t, Continuing, s.Advance())
}

func TestSetRepeatCountAfterEndPlaysOn(t *testing.T) {
	s := newState(t, 3, 300)
	_, results := drive(s, 100)
	require.Equal(t, Ended, results[len(results)-1])
	s.ended = true
	require.Equal(t, Ended, s.Advance())

	require.NoError(t, s.SetRepeatCount(1))
	assert.False(t, s.Ended())
	assert.Zero(t, s.RepeatsCompleted())
	s.Resume()

	var got []AdvanceResult
	for i := 0; i < 5; i++ {
		got = append(got, s.Advance())
	}
	assert.Equal(t, []AdvanceResult{Repeated, Continuing, Continuing, Continuing, Ended}, got)
	assert.Equal(t, 1, s.RepeatsCompleted())
	assert.Equal(t, 3, s.CurrentFrame())
}

func TestDegenerateWindowEndsImmediately(t *testing.T) {
	s := newState(t, 60, 2000)
	require.NoError(t, s.SetRepeatCount(Infinite))
	s.SetFrameWindow(5, 5)
	assert.Equal(t, NoReschedule, s.FrameInterval())

	s.Start()
	assert.Equal(t, Ended, s.Advance())
	assert.Equal(t, 5, s.CurrentFrame())
}

func TestFrameStep(t *testing.T) {
	s := newState(t, 10, 1000)
	require.NoError(t, s.SetFrameStep(3))
	frames, _ := drive(s, 100)
	assert.Equal(t, []int{0, 3, 6, 9}, frames)

	assert.ErrorIs(t, s.SetFrameStep(0), ErrInvalidArgument)
	assert.Equal(t, 3, s.FrameStep())
}

func TestFrameInterval(t *testing.T) {
	s := newState(t, 10, 330)
	assert.EqualValues(t, 33, s.FrameInterval())

	require.NoError(t, s.SetSpeed(2))
	assert.EqualValues(t, 16, s.FrameInterval())

	require.NoError(t, s.SetSpeed(0.5))
	assert.EqualValues(t, 66, s.FrameInterval())

	s.SetFrameWindow(0, 5)
	assert.EqualValues(t, 132, s.FrameInterval())
}

func TestIntervalTruncatesBeforeSpeed(t *testing.T) {
	// 1000/30 truncates to 33 before the speed divides it.
	s := newState(t, 30, 1000)
	require.NoError(t, s.SetSpeed(1.5))
	assert.EqualValues(t, 22, s.FrameInterval())
}

func TestIntervalSaturatesAtTinySpeed(t *testing.T) {
	s := newState(t, 30, 1000)
	require.NoError(t, s.SetSpeed(1e-300))
	assert.Equal(t, MaxInterval, s.FrameInterval())

	s.SetDriftCompensation(true)
	for i := 0; i < 3; i++ {
		assert.Equal(t, MaxInterval, s.nextInterval())
	}
}

func TestDriftCompensation(t *testing.T) {
	s := newState(t, 30, 1000)
	assert.EqualValues(t, 33, s.nextInterval())

	s.SetDriftCompensation(true)
	var total int64
	for i := 0; i < 30; i++ {
		total += s.nextInterval()
	}
	assert.InDelta(t, 1000, total, 1)
}

func TestSetSpeedRejectsNonPositive(t *testing.T) {
	s := newState(t, 10, 330)
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, s.SetSpeed(v), ErrInvalidArgument, "speed %v", v)
		assert.Equal(t, 1.0, s.Speed())
		assert.EqualValues(t, 33, s.FrameInterval())
	}
}

func TestSetRepeatCountValidation(t *testing.T) {
	s := newState(t, 10, 330)
	assert.ErrorIs(t, s.SetRepeatCount(-2), ErrInvalidArgument)
	assert.Equal(t, 0, s.RepeatCount())
	assert.NoError(t, s.SetRepeatCount(Infinite))
	assert.Equal(t, Infinite, s.RepeatCount())
}

func TestSetRepeatModeValidation(t *testing.T) {
	s := newState(t, 10, 330)
	assert.ErrorIs(t, s.SetRepeatMode(RepeatMode(9)), ErrInvalidArgument)
	assert.Equal(t, Restart, s.RepeatMode())
}

func TestConfigure(t *testing.T) {
	s := newState(t, 60, 2000)
	p := DefaultParams()
	p.FirstFrame, p.LastFrame = 10, 40
	p.Speed = 2
	p.RepeatMode = Reverse
	p.RepeatCount = 3
	p.AutoPlay = false
	require.NoError(t, s.Configure(p))
	assert.Equal(t, 10, s.FirstFrame())
	assert.Equal(t, 40, s.LastFrame())
	assert.Equal(t, 2.0, s.Speed())
	assert.Equal(t, Reverse, s.RepeatMode())
	assert.Equal(t, 3, s.RepeatCount())
	assert.False(t, s.AutoPlay())

	bad := DefaultParams()
	bad.Speed = 0
	assert.ErrorIs(t, s.Configure(bad), ErrInvalidArgument)
	assert.Equal(t, 2.0, s.Speed())
	assert.Equal(t, 10, s.FirstFrame())
}

func TestLoad(t *testing.T) {
	h := newFakeHandle(24, 1000)
	s, err := Load(fakeRenderer{h: h}, []byte("{}"), DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 24, s.LastFrame())
	assert.EqualValues(t, 1000, s.Duration())

	_, err = Load(fakeRenderer{err: render.ErrDecode}, nil, DefaultParams())
	assert.ErrorIs(t, err, render.ErrDecode)

	bad := DefaultParams()
	bad.FrameStep = 0
	h2 := newFakeHandle(24, 1000)
	_, err = Load(fakeRenderer{h: h2}, nil, bad)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.True(t, h2.released)
}

func TestStartResetsBookkeeping(t *testing.T) {
	s := newState(t, 4, 400)
	require.NoError(t, s.SetRepeatMode(Reverse))
	require.NoError(t, s.SetRepeatCount(Infinite))
	s.Start()
	for i := 0; i < 6; i++ {
		s.Advance()
	}
	require.Equal(t, 1, s.RepeatsCompleted())
	s.Pause()
	assert.False(t, s.Running())
	s.Resume()
	assert.True(t, s.Running())
	assert.Equal(t, 1, s.RepeatsCompleted())

	s.Start()
	assert.Equal(t, 0, s.RepeatsCompleted())
	assert.Equal(t, 0, s.CurrentFrame())
	assert.Equal(t, Continuing, s.Advance())
	assert.Equal(t, 1, s.CurrentFrame())
}

func TestReleaseAndClone(t *testing.T) {
	h := newFakeHandle(10, 500)
	s := NewState(h)
	require.NoError(t, s.resize(20, 10))
	require.NoError(t, s.SetSpeed(3))
	s.SetFrameWindow(2, 8)

	c, err := s.Clone()
	require.NoError(t, err)
	assert.Equal(t, 1, h.clones)
	assert.Equal(t, 2, c.FirstFrame())
	assert.Equal(t, 8, c.LastFrame())
	assert.Equal(t, 3.0, c.Speed())
	assert.Equal(t, 20, c.Width())
	assert.Equal(t, 10, c.Height())

	s.Release()
	s.Release()
	assert.True(t, h.released)
	assert.False(t, s.Valid())
	assert.Zero(t, s.Duration())
	assert.True(t, c.Valid())

	_, err = s.Clone()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestParseRepeatMode(t *testing.T) {
	m, err := ParseRepeatMode("Reverse")
	require.NoError(t, err)
	assert.Equal(t, Reverse, m)
	m, err = ParseRepeatMode("")
	require.NoError(t, err)
	assert.Equal(t, Restart, m)
	_, err = ParseRepeatMode("pingpong")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func countResult(rs []AdvanceResult, want AdvanceResult) int {
	n := 0
	for _, r := range rs {
		if r == want {
			n++
		}
	}
	return n
}
