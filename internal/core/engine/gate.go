package engine

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// ErrCancelled is wrapped by Acquire when the caller's context ends before admission.
var ErrCancelled = errors.New("rate gate: acquire cancelled")

// Gate admits at most Limit calls in any rolling window of Window duration.
// Blocked callers are admitted in arrival order.
type Gate struct {
	limit    int
	window   time.Duration
	clock    Clock
	observer GateObserver

	mu      sync.Mutex
	slots   []time.Time // expiry of each live admission, oldest first
	waiters *list.List  // of *gateWaiter
	timer   Timer
}

type gateWaiter struct {
	ready    chan struct{}
	since    time.Time
	admitted bool
}

// GateObserver is notified of admissions and abandoned waits.
type GateObserver interface {
	Admitted(waited time.Duration, at time.Time)
	Cancelled(waited time.Duration)
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) GateOption {
	return func(g *Gate) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithObserver registers an observer for admission events.
func WithObserver(observer GateObserver) GateOption {
	return func(g *Gate) {
		g.observer = observer
	}
}

// NewGate builds a gate allowing limit admissions per window.
func NewGate(limit int, window time.Duration, opts ...GateOption) (*Gate, error) {
	if limit < 1 {
		return nil, core.Errorf(core.KindConfig, "new gate", "request limit must be at least 1, got %d", limit)
	}
	if window <= 0 {
		return nil, core.Errorf(core.KindConfig, "new gate", "window must be positive, got %s", window)
	}

	g := &Gate{
		limit:   limit,
		window:  window,
		clock:   SystemClock,
		slots:   make([]time.Time, 0, limit),
		waiters: list.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NewGateForUnit builds a gate whose window is amount units long.
func NewGateForUnit(unit time.Duration, amount int64, limit int, opts ...GateOption) (*Gate, error) {
	if unit <= 0 {
		return nil, core.Errorf(core.KindConfig, "new gate", "time unit must be positive, got %s", unit)
	}
	if amount < 1 {
		return nil, core.Errorf(core.KindConfig, "new gate", "time amount must be at least 1, got %d", amount)
	}
	if amount > int64(maxDuration/unit) {
		return nil, core.Errorf(core.KindConfig, "new gate", "window of %d x %s overflows", amount, unit)
	}
	return NewGate(limit, time.Duration(amount)*unit, opts...)
}

const maxDuration = time.Duration(1<<63 - 1)

// ParseTimeUnit maps unit names such as "seconds", "MINUTES" or "ms" to durations.
func ParseTimeUnit(value string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ns", "nanosecond", "nanoseconds":
		return time.Nanosecond, nil
	case "us", "µs", "microsecond", "microseconds":
		return time.Microsecond, nil
	case "ms", "millisecond", "milliseconds":
		return time.Millisecond, nil
	case "", "s", "sec", "second", "seconds":
		return time.Second, nil
	case "m", "min", "minute", "minutes":
		return time.Minute, nil
	case "h", "hour", "hours":
		return time.Hour, nil
	case "d", "day", "days":
		return 24 * time.Hour, nil
	default:
		return 0, core.Errorf(core.KindConfig, "parse time unit", "unknown time unit %q", value)
	}
}

// Limit returns the maximum admissions per window.
func (g *Gate) Limit() int {
	return g.limit
}

// Window returns the rolling window length.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Acquire blocks until the caller may perform one gated call or ctx ends.
// A cancelled caller never holds a slot.
func (g *Gate) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	g.mu.Lock()
	now := g.clock.Now()
	if g.waiters.Len() == 0 && g.admitLocked(now) {
		g.mu.Unlock()
		g.notifyAdmitted(0, now)
		return nil
	}

	w := &gateWaiter{ready: make(chan struct{}), since: now}
	elem := g.waiters.PushBack(w)
	g.dispatchLocked()
	g.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
	}

	g.mu.Lock()
	if w.admitted {
		g.mu.Unlock()
		return nil
	}
	wasHead := g.waiters.Front() == elem
	g.waiters.Remove(elem)
	if wasHead {
		g.dispatchLocked()
	}
	waited := g.clock.Now().Sub(w.since)
	g.mu.Unlock()

	if g.observer != nil {
		g.observer.Cancelled(waited)
	}
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

// admitLocked evicts expired slots and reserves one if capacity remains.
func (g *Gate) admitLocked(now time.Time) bool {
	expired := 0
	for expired < len(g.slots) && !g.slots[expired].After(now) {
		expired++
	}
	if expired > 0 {
		g.slots = append(g.slots[:0], g.slots[expired:]...)
	}
	if len(g.slots) >= g.limit {
		return false
	}
	g.slots = append(g.slots, now.Add(g.window))
	return true
}

// dispatchLocked admits queued waiters while capacity lasts and arms the
// timer for the earliest expiry when some remain blocked.
func (g *Gate) dispatchLocked() {
	now := g.clock.Now()
	for g.waiters.Len() > 0 {
		if !g.admitLocked(now) {
			break
		}
		front := g.waiters.Front()
		w := g.waiters.Remove(front).(*gateWaiter)
		w.admitted = true
		close(w.ready)
		if g.observer != nil {
			// Observer callbacks must not call back into the gate.
			g.observer.Admitted(now.Sub(w.since), now)
		}
	}

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if g.waiters.Len() == 0 {
		return
	}
	wait := g.slots[0].Sub(now)
	g.timer = g.clock.AfterFunc(wait, g.wake)
}

func (g *Gate) wake() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dispatchLocked()
}

func (g *Gate) notifyAdmitted(waited time.Duration, at time.Time) {
	if g.observer != nil {
		g.observer.Admitted(waited, at)
	}
}

// GateSnapshot is a point-in-time view of the gate.
type GateSnapshot struct {
	Limit      int           `json:"limit"`
	Window     time.Duration `json:"window"`
	Active     int           `json:"active"`
	Waiting    int           `json:"waiting"`
	Slots      []time.Time   `json:"slots"`
	NextFreeAt *time.Time    `json:"next_free_at,omitempty"`
}

// Snapshot reports live admissions and blocked callers without mutating state.
func (g *Gate) Snapshot() GateSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	slots := make([]time.Time, 0, len(g.slots))
	for _, expiry := range g.slots {
		if expiry.After(now) {
			slots = append(slots, expiry.UTC())
		}
	}

	snap := GateSnapshot{
		Limit:   g.limit,
		Window:  g.window,
		Active:  len(slots),
		Waiting: g.waiters.Len(),
		Slots:   slots,
	}
	if len(slots) >= g.limit {
		next := slots[0]
		snap.NextFreeAt = &next
	}
	return snap
}
