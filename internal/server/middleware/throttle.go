package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/time/rate"

	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
)

// Throttle limits inbound API calls per client address with token buckets.
// It protects the shared outbound gate from a single noisy client; it does not
// replace it.
type Throttle struct {
	mu      sync.Mutex
	entries map[string]*throttleEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewThrottle returns nil when rps is not positive, which disables throttling.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Ceil(rps))
	}
	return &Throttle{
		entries: make(map[string]*throttleEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if ent, ok := t.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(t.rps, t.burst)
	t.entries[key] = &throttleEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops limiters idle for longer than the idle TTL.
func (t *Throttle) Cleanup() {
	cutoff := t.now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	for k, ent := range t.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(t.entries, k)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (t *Throttle) StartJanitor(ctx context.Context, every time.Duration) {
	if t == nil || every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Cleanup()
			}
		}
	}()
}

// Middleware rejects over-limit clients with 429 and a Retry-After hint.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	if t == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if t.limiter(key).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(math.Ceil(1 / float64(t.rps)))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

		envelope := errors.NewErrorEnvelope(apperrors.CodeTooManyRequests,
			fmt.Sprintf("client %s exceeded %.2f requests per second", key, float64(t.rps))).
			WithDetails(map[string]interface{}{"retry_after_seconds": retryAfter})
		apperrors.RespondWithEnvelope(w, r, envelope)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
