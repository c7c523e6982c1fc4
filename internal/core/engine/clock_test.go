package engine

import (
	"sort"
	"sync"
	"time"
)

// fakeClock only moves when Advance is called. Due timers fire synchronously
// from Advance, outside the clock's own lock.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// admissionLog records observer callbacks.
type admissionLog struct {
	mu        sync.Mutex
	admitted  []time.Time
	waits     []time.Duration
	cancelled int
}

func (l *admissionLog) Admitted(waited time.Duration, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.admitted = append(l.admitted, at)
	l.waits = append(l.waits, waited)
}

func (l *admissionLog) Cancelled(time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelled++
}

func (l *admissionLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.admitted)
}

func (l *admissionLog) times() []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Time, len(l.admitted))
	copy(out, l.admitted)
	return out
}
