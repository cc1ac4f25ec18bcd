package app

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/coreman2200/lumiplay/internal/diagnostics"
	"github.com/coreman2200/lumiplay/internal/playback"
	"github.com/coreman2200/lumiplay/internal/render"
	"github.com/coreman2200/lumiplay/internal/render/keyframe"
)

const shortDoc = `{"v":"1","fr":10,"ip":0,"op":3,"w":4,"h":4,
  "layers":[{"ty":"solid","c":[{"t":0,"v":"#ff0000"},{"t":3,"v":"#00ff00"}]}]}`

// queueHost runs posted callbacks when drained, ignoring delays.
type queueHost struct {
	fns []*queued
}

type queued struct {
	fn   func()
	dead bool
}

func (h *queueHost) PostDelayed(_ time.Duration, fn func()) func() {
	q := &queued{fn: fn}
	h.fns = append(h.fns, q)
	return func() { q.dead = true }
}

func (h *queueHost) drain(max int) int {
	n := 0
	for n < max && len(h.fns) > 0 {
		q := h.fns[0]
		h.fns = h.fns[1:]
		if q.dead {
			continue
		}
		q.fn()
		n++
	}
	return n
}

type counting struct{ start, repeat, end int }

func (c *counting) OnAnimationStart()  { c.start++ }
func (c *counting) OnAnimationRepeat() { c.repeat++ }
func (c *counting) OnAnimationEnd()    { c.end++ }

func newView(t *testing.T, p playback.Params) (*View, *queueHost, *render.Engine) {
	t.Helper()
	host := &queueHost{}
	eng := render.NewEngine()
	v := NewView(keyframe.Renderer{}, eng, host, zerolog.Nop(), ViewOptions{Params: p})
	return v, host, eng
}

func TestViewLifecycle(t *testing.T) {
	p := playback.DefaultParams()
	p.RepeatCount = 1
	v, host, eng := newView(t, p)
	l := &counting{}
	v.SetListener(l)
	var events []string
	v.SetEvents(func(d diag.Diagnostic) { events = append(events, d.Code) })

	require.NoError(t, v.SetSource([]byte(shortDoc)))
	assert.Nil(t, v.Scheduler())
	v.Start()
	assert.Zero(t, host.drain(10))

	require.NoError(t, v.Attach())
	require.NotNil(t, v.Scheduler())
	assert.True(t, v.IsRunning())
	assert.Equal(t, 50, v.Snapshot().Width)

	host.drain(100)
	assert.Equal(t, counting{start: 1, repeat: 1, end: 1}, *l)
	assert.EqualValues(t, 8, eng.Last.Frames)
	assert.Equal(t, []string{"animation.start", "animation.repeat", "animation.end"}, events)

	v.Detach()
	assert.Nil(t, v.Scheduler())
	assert.False(t, v.IsRunning())
}

func TestViewNoAutoPlay(t *testing.T) {
	p := playback.DefaultParams()
	p.AutoPlay = false
	v, host, _ := newView(t, p)
	require.NoError(t, v.SetSource([]byte(shortDoc)))
	require.NoError(t, v.Attach())
	assert.False(t, v.IsRunning())
	assert.Zero(t, host.drain(10))

	v.Start()
	assert.Equal(t, 1, host.drain(1))
}

func TestViewReplaceSource(t *testing.T) {
	v, host, _ := newView(t, playback.DefaultParams())
	require.NoError(t, v.Attach())
	assert.Nil(t, v.Scheduler())

	require.NoError(t, v.SetSource([]byte(shortDoc)))
	first := v.Scheduler()
	require.NotNil(t, first)
	host.drain(2)

	require.NoError(t, v.SetSource(keyframe.Sample))
	assert.NotSame(t, first, v.Scheduler())
	assert.False(t, first.State().Valid())
	assert.Equal(t, 60, v.Snapshot().FrameCount)

	err := v.SetSource([]byte(`{"fr":0}`))
	assert.ErrorIs(t, err, render.ErrDecode)
	assert.Nil(t, v.Scheduler())
}

func TestViewControlsWithoutAnimation(t *testing.T) {
	v, _, _ := newView(t, playback.DefaultParams())
	v.Start()
	v.Pause()
	v.Resume()
	v.Stop()

	assert.NoError(t, v.Resize(20, 10))
	assert.ErrorIs(t, v.Resize(0, 10), playback.ErrInvalidArgument)
	assert.ErrorIs(t, v.SetSpeed(0), playback.ErrInvalidArgument)
	assert.NoError(t, v.SetSpeed(2))
	assert.ErrorIs(t, v.SetRepeatCount(-3), playback.ErrInvalidArgument)
	assert.ErrorIs(t, v.SetFrameWindow(0, 1), playback.ErrInvalidState)

	require.NoError(t, v.SetSource([]byte(shortDoc)))
	require.NoError(t, v.Attach())
	snap := v.Snapshot()
	assert.Equal(t, 20, snap.Width)
	assert.Equal(t, 10, snap.Height)
	assert.Equal(t, 2.0, snap.Speed)
}

func TestViewControlsForwarded(t *testing.T) {
	v, _, eng := newView(t, playback.DefaultParams())
	require.NoError(t, v.SetSource([]byte(shortDoc)))
	require.NoError(t, v.Attach())

	require.NoError(t, v.SetRepeatMode(playback.Reverse))
	require.NoError(t, v.SetRepeatCount(playback.Infinite))
	require.NoError(t, v.SetFrameWindow(1, 99))
	v.SetBrightness(0.25)

	snap := v.Snapshot()
	assert.Equal(t, "reverse", snap.RepeatMode)
	assert.Equal(t, playback.Infinite, snap.RepeatCount)
	assert.Equal(t, 1, snap.FirstFrame)
	assert.Equal(t, 3, snap.LastFrame)
	assert.Equal(t, 0.25, eng.Brightness)

	v.Pause()
	assert.False(t, v.IsRunning())
	v.Resume()
	assert.True(t, v.IsRunning())
}

func TestViewWiringTest(t *testing.T) {
	v, host, eng := newView(t, playback.DefaultParams())
	require.NoError(t, v.Resize(3, 2))
	require.NoError(t, v.SetSource([]byte(shortDoc)))
	require.NoError(t, v.Attach())
	var events []string
	v.SetEvents(func(d diag.Diagnostic) { events = append(events, d.Code) })

	assert.Error(t, v.RunTest("plane_z"))
	require.NoError(t, v.RunTest("index_sweep"))
	assert.True(t, v.Testing())
	assert.False(t, v.IsRunning())
	assert.EqualValues(t, 1, eng.Last.Frames)

	host.drain(20)
	assert.False(t, v.Testing())
	assert.EqualValues(t, 6, eng.Last.Frames)
	assert.Equal(t, []string{"animation.test.done"}, events)

	require.NoError(t, v.RunTest("rgb_channels"))
	v.Start()
	assert.False(t, v.Testing())
	assert.True(t, v.IsRunning())
}
