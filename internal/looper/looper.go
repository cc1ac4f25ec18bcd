// Package looper runs posted callbacks one at a time on a single goroutine, the way a UI
// thread message loop does. It is the host the playback scheduler re-arms itself on.
package looper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("looper stopped")

type task struct {
	fn   func()
	dead *atomic.Bool
}

type Looper struct {
	wake chan struct{}
	quit chan struct{}
	once sync.Once

	mu     sync.Mutex
	queue  []task
	timers map[*time.Timer]struct{}
}

func New() *Looper {
	return &Looper{
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		timers: map[*time.Timer]struct{}{},
	}
}

// Run executes callbacks in posting order until ctx is done or Stop is called.
func (l *Looper) Run(ctx context.Context) error {
	defer l.Stop()
	for {
		select {
		case <-l.wake:
			for {
				t, ok := l.pop()
				if !ok {
					break
				}
				if !t.dead.Load() {
					t.fn()
				}
				if l.stopped() {
					return nil
				}
			}
		case <-l.quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop ends the loop and disarms every pending timer. Callbacks still queued are dropped.
func (l *Looper) Stop() {
	l.once.Do(func() {
		close(l.quit)
		l.mu.Lock()
		for t := range l.timers {
			t.Stop()
		}
		l.timers = map[*time.Timer]struct{}{}
		l.queue = nil
		l.mu.Unlock()
	})
}

// Post enqueues fn to run on the loop.
func (l *Looper) Post(fn func()) (cancel func()) {
	return l.PostDelayed(0, fn)
}

// PostDelayed enqueues fn after d. A cancelled callback never runs, even if its timer has
// already fired and it sits in the queue.
func (l *Looper) PostDelayed(d time.Duration, fn func()) (cancel func()) {
	t := task{fn: fn, dead: &atomic.Bool{}}
	if l.stopped() {
		return func() {}
	}
	if d <= 0 {
		l.push(t)
		return func() { t.dead.Store(true) }
	}

	// tm is assigned under mu; the callback reads it only after taking mu.
	l.mu.Lock()
	var tm *time.Timer
	tm = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, tm)
		l.mu.Unlock()
		l.push(t)
	})
	l.timers[tm] = struct{}{}
	l.mu.Unlock()

	return func() {
		t.dead.Store(true)
		if tm.Stop() {
			l.forget(tm)
		}
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called from the loop.
func (l *Looper) Do(fn func()) error {
	if l.stopped() {
		return ErrStopped
	}
	done := make(chan struct{})
	l.push(task{fn: func() { defer close(done); fn() }, dead: &atomic.Bool{}})
	select {
	case <-done:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

func (l *Looper) push(t task) {
	if l.stopped() {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, t)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Looper) pop() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return task{}, false
	}
	t := l.queue[0]
	l.queue[0] = task{}
	l.queue = l.queue[1:]
	return t, true
}

func (l *Looper) forget(tm *time.Timer) {
	l.mu.Lock()
	delete(l.timers, tm)
	l.mu.Unlock()
}

func (l *Looper) stopped() bool {
	select {
	case <-l.quit:
		return true
	default:
		return false
	}
}
