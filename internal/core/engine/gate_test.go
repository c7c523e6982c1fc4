package engine

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

const settle = 2 * time.Second

func newTestGate(t *testing.T, limit int, window time.Duration) (*Gate, *fakeClock, *admissionLog) {
	t.Helper()
	clock := newFakeClock()
	log := &admissionLog{}
	gate, err := NewGate(limit, window, WithClock(clock), WithObserver(log))
	require.NoError(t, err)
	return gate, clock, log
}

func acquireAsync(ctx context.Context, gate *Gate) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- gate.Acquire(ctx)
	}()
	return done
}

func waitForWaiting(t *testing.T, gate *Gate, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return gate.Snapshot().Waiting == n
	}, settle, time.Millisecond)
}

func requirePending(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("acquire returned early: %v", err)
	default:
	}
}

func requireAdmitted(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(settle):
		t.Fatal("acquire was not admitted")
	}
}

func TestNewGateRejectsInvalidConfig(t *testing.T) {
	_, err := NewGate(0, time.Second)
	require.Error(t, err)
	assert.Equal(t, core.KindConfig, core.KindOf(err))

	_, err = NewGate(1, 0)
	require.Error(t, err)
	assert.Equal(t, core.KindConfig, core.KindOf(err))

	_, err = NewGate(1, -time.Second)
	require.Error(t, err)

	_, err = NewGateForUnit(time.Second, 0, 1)
	require.Error(t, err)
	assert.Equal(t, core.KindConfig, core.KindOf(err))

	_, err = NewGateForUnit(24*time.Hour, 1<<40, 1)
	require.Error(t, err)
}

func TestNewGateForUnit(t *testing.T) {
	gate, err := NewGateForUnit(time.Minute, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, gate.Window())
	assert.Equal(t, 7, gate.Limit())
}

func TestParseTimeUnit(t *testing.T) {
	cases := map[string]time.Duration{
		"SECONDS":      time.Second,
		"minutes":      time.Minute,
		"ms":           time.Millisecond,
		"Hour":         time.Hour,
		"days":         24 * time.Hour,
		"microseconds": time.Microsecond,
		"nanoseconds":  time.Nanosecond,
	}
	for input, want := range cases {
		got, err := ParseTimeUnit(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseTimeUnit("fortnight")
	require.Error(t, err)
	assert.Equal(t, core.KindConfig, core.KindOf(err))
}

func TestGateBackToBackAdmissionsDoNotBlock(t *testing.T) {
	gate, clock, _ := newTestGate(t, 3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Acquire(ctx))
	}

	done := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 1)
	requirePending(t, done)

	clock.Advance(time.Second - time.Nanosecond)
	requirePending(t, done)

	clock.Advance(time.Nanosecond)
	requireAdmitted(t, done)

	snap := gate.Snapshot()
	assert.Equal(t, 0, snap.Waiting)
	assert.Equal(t, 3, snap.Active)
}

func TestGateWaitsForEarliestExpiry(t *testing.T) {
	gate, clock, log := newTestGate(t, 2, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))
	clock.Advance(4 * time.Second)
	require.NoError(t, gate.Acquire(ctx))

	done := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 1)

	// first slot expires at t=10s, i.e. 6s from now
	clock.Advance(5 * time.Second)
	requirePending(t, done)
	clock.Advance(time.Second)
	requireAdmitted(t, done)

	log.mu.Lock()
	defer log.mu.Unlock()
	require.Len(t, log.waits, 3)
	assert.Equal(t, 6*time.Second, log.waits[2])
}

func TestGateAdmitsInArrivalOrder(t *testing.T) {
	gate, clock, _ := newTestGate(t, 1, time.Second)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))

	first := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 1)
	second := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 2)

	clock.Advance(time.Second)
	requireAdmitted(t, first)
	requirePending(t, second)

	clock.Advance(time.Second)
	requireAdmitted(t, second)
}

func TestGateNewcomerDoesNotOvertakeWaiters(t *testing.T) {
	gate, clock, _ := newTestGate(t, 2, time.Second)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))
	require.NoError(t, gate.Acquire(ctx))

	queued := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 1)

	clock.Advance(time.Second)
	requireAdmitted(t, queued)

	// one slot is free again; a newcomer takes it without waiting
	require.NoError(t, gate.Acquire(ctx))
	assert.Equal(t, 2, gate.Snapshot().Active)
}

func TestGateCancelledWaiterLeavesSlotsUntouched(t *testing.T) {
	gate, clock, log := newTestGate(t, 2, time.Second)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, gate.Acquire(ctx))
	before := gate.Snapshot()

	cancelCtx, cancel := context.WithCancel(ctx)
	done := acquireAsync(cancelCtx, gate)
	waitForWaiting(t, gate, 1)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrCancelled)
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(settle):
		t.Fatal("cancelled acquire did not return")
	}

	after := gate.Snapshot()
	assert.Equal(t, before.Slots, after.Slots)
	assert.Equal(t, 0, after.Waiting)
	log.mu.Lock()
	assert.Equal(t, 1, log.cancelled)
	log.mu.Unlock()

	// capacity is unchanged for the next caller
	next := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 1)
	clock.Advance(900 * time.Millisecond)
	requireAdmitted(t, next)
}

func TestGateCancelledHeadHandsOverToNext(t *testing.T) {
	gate, clock, _ := newTestGate(t, 1, time.Second)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))

	headCtx, cancel := context.WithCancel(ctx)
	head := acquireAsync(headCtx, gate)
	waitForWaiting(t, gate, 1)
	tail := acquireAsync(ctx, gate)
	waitForWaiting(t, gate, 2)

	cancel()
	require.ErrorIs(t, <-head, ErrCancelled)
	waitForWaiting(t, gate, 1)

	clock.Advance(time.Second)
	requireAdmitted(t, tail)
}

func TestGateAcquireWithDoneContext(t *testing.T) {
	gate, _, _ := newTestGate(t, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Acquire(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, gate.Snapshot().Active)
}

func TestGateDeadlineWhileWaiting(t *testing.T) {
	gate, err := NewGate(1, time.Hour)
	require.NoError(t, err)
	require.NoError(t, gate.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = gate.Acquire(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, gate.Snapshot().Active)
	assert.Equal(t, 0, gate.Snapshot().Waiting)
}

// TestGateSlidingWindowInvariant drives random arrival patterns through a
// fake clock and checks that no window of length D holds more than N admissions.
func TestGateSlidingWindowInvariant(t *testing.T) {
	for seed := int64(1); seed <= 12; seed++ {
		rng := rand.New(rand.NewSource(seed))
		limit := 1 + rng.Intn(5)
		window := time.Duration(1+rng.Intn(20)) * 100 * time.Millisecond
		callers := limit * (2 + rng.Intn(3))

		gate, clock, log := newTestGate(t, limit, window)
		ctx := context.Background()

		var wg sync.WaitGroup
		launched := 0
		for launched < callers || log.count() < callers {
			burst := rng.Intn(limit + 2)
			for i := 0; i < burst && launched < callers; i++ {
				launched++
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, gate.Acquire(ctx))
				}()
			}

			expected := launched
			require.Eventually(t, func() bool {
				return log.count()+gate.Snapshot().Waiting == expected
			}, settle, time.Millisecond, "seed %d", seed)

			clock.Advance(time.Duration(rng.Intn(int(window/time.Millisecond))+1) * time.Millisecond)
		}
		wg.Wait()

		times := log.times()
		require.Len(t, times, callers)
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		for i, start := range times {
			inWindow := 0
			for _, at := range times[i:] {
				if at.Sub(start) < window {
					inWindow++
				}
			}
			require.LessOrEqual(t, inWindow, limit, "seed %d: window starting %s", seed, start)
		}
	}
}

func TestGateEndToEndWallClock(t *testing.T) {
	if testing.Short() {
		t.Skip("wall clock scenario")
	}

	gate, err := NewGateForUnit(time.Second, 1, 5)
	require.NoError(t, err)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Acquire(ctx))
		}()
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	require.NoError(t, gate.Acquire(ctx))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 990*time.Millisecond)
	assert.Less(t, elapsed, 1500*time.Millisecond)
}

func TestSystemClockKeepsMonotonicReading(t *testing.T) {
	now := SystemClock.Now()
	// time.Time prints "m=±..." only while it carries a monotonic reading
	assert.Contains(t, now.String(), "m=")

	later := now.Add(time.Second)
	assert.Contains(t, later.String(), "m=")
	assert.Equal(t, time.Second, later.Sub(now))
}

func TestGateSnapshotReportsUTC(t *testing.T) {
	gate, err := NewGate(2, time.Minute)
	require.NoError(t, err)
	require.NoError(t, gate.Acquire(context.Background()))

	snap := gate.Snapshot()
	require.Len(t, snap.Slots, 1)
	assert.Equal(t, time.UTC, snap.Slots[0].Location())
	assert.NotContains(t, snap.Slots[0].String(), "m=")
}
