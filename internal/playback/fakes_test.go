package playback

import (
	"errors"
	"image"
	"time"

	"github.com/coreman2200/lumiplay/internal/render"
)

var errBoom = errors.New("boom")

type fakeHandle struct {
	frames   int
	duration int64
	w, h     int
	resizes  int
	rendered []int
	failAt   int
	released bool
	clones   int
	buf      *image.RGBA
}

func newFakeHandle(frames int, duration int64) *fakeHandle {
	return &fakeHandle{frames: frames, duration: duration, failAt: -1}
}

func (f *fakeHandle) FrameCount() int { return f.frames }
func (f *fakeHandle) Duration() int64 { return f.duration }

func (f *fakeHandle) Resize(w, h int) error {
	f.w, f.h = w, h
	f.resizes++
	f.buf = image.NewRGBA(image.Rect(0, 0, w, h))
	return nil
}

func (f *fakeHandle) RenderFrame(i int) (*image.RGBA, error) {
	if i == f.failAt {
		return nil, errBoom
	}
	f.rendered = append(f.rendered, i)
	return f.buf, nil
}

func (f *fakeHandle) Clone() (render.Handle, error) {
	f.clones++
	return newFakeHandle(f.frames, f.duration), nil
}

func (f *fakeHandle) Release()    { f.released = true }
func (f *fakeHandle) Valid() bool { return !f.released }

type fakeRenderer struct {
	h   *fakeHandle
	err error
}

func (r fakeRenderer) Name() string { return "fake" }

func (r fakeRenderer) Load([]byte) (render.Handle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.h, nil
}

type post struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

// fakeHost queues posted callbacks; the test drives them with run.
type fakeHost struct {
	posts []*post
}

func (h *fakeHost) PostDelayed(d time.Duration, fn func()) func() {
	p := &post{d: d, fn: fn}
	h.posts = append(h.posts, p)
	return func() { p.cancelled = true }
}

func (h *fakeHost) live() []*post {
	var out []*post
	for _, p := range h.posts {
		if !p.cancelled {
			out = append(out, p)
		}
	}
	return out
}

// run executes posted callbacks in order until the queue is empty or max is reached.
func (h *fakeHost) run(max int) int {
	n := 0
	for n < max && len(h.posts) > 0 {
		p := h.posts[0]
		h.posts = h.posts[1:]
		if p.cancelled {
			continue
		}
		p.fn()
		n++
	}
	return n
}

// stepClock advances by step on every Now call after the first of a pair.
type stepClock struct {
	now  time.Time
	step time.Duration
	odd  bool
}

func (c *stepClock) Now() time.Time {
	if c.odd {
		c.now = c.now.Add(c.step)
	}
	c.odd = !c.odd
	return c.now
}

type recorder struct {
	events []string
}

func (r *recorder) OnAnimationStart()  { r.events = append(r.events, "start") }
func (r *recorder) OnAnimationRepeat() { r.events = append(r.events, "repeat") }
func (r *recorder) OnAnimationEnd()    { r.events = append(r.events, "end") }

func (r *recorder) count(ev string) int {
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

type canvas struct {
	writes int
}

func (c *canvas) Write(*image.RGBA) error {
	c.writes++
	return nil
}
