package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
	"github.com/IIExpanse/honest-sign-test-task/internal/metrics"
)

// Aggregate and per-check health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const defaultCheckTimeout = 3 * time.Second

// CheckResult is the outcome of one registered checker.
type CheckResult struct {
	Status     string `json:"status"`
	Optional   bool   `json:"optional,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// StatusResponse is the body of the liveness and readiness endpoints.
type StatusResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// HealthChecker is implemented by components that report their own health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

type registeredChecker struct {
	checker  HealthChecker
	optional bool
}

// HealthManager runs the registered checkers for /health and /health/ready.
// A failing critical checker makes the service unhealthy; a failing optional
// one only degrades it.
type HealthManager struct {
	mu           sync.RWMutex
	checkers     map[string]registeredChecker
	version      string
	started      time.Time
	checkTimeout time.Duration
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers:     make(map[string]registeredChecker),
		version:      version,
		started:      time.Now(),
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterChecker adds a checker the service cannot serve submissions without.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(name, checker, false)
}

// RegisterOptionalChecker adds a checker whose failure degrades the service.
func (hm *HealthManager) RegisterOptionalChecker(name string, checker HealthChecker) {
	hm.register(name, checker, true)
}

func (hm *HealthManager) register(name string, checker HealthChecker, optional bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = registeredChecker{checker: checker, optional: optional}
}

// runChecks runs every checker concurrently. Checkers still running when ctx
// ends are reported as timed out.
func (hm *HealthManager) runChecks(ctx context.Context) map[string]CheckResult {
	hm.mu.RLock()
	registered := make(map[string]registeredChecker, len(hm.checkers))
	for name, rc := range hm.checkers {
		registered[name] = rc
	}
	hm.mu.RUnlock()

	start := time.Now()
	type finished struct {
		name   string
		result CheckResult
	}
	done := make(chan finished, len(registered))
	for name, rc := range registered {
		go func(name string, rc registeredChecker) {
			began := time.Now()
			err := rc.checker.CheckHealth(ctx)
			elapsed := time.Since(began)
			metrics.RecordHealthCheck(name, err == nil, elapsed)
			done <- finished{name: name, result: resultFor(rc.optional, err, elapsed)}
		}(name, rc)
	}

	results := make(map[string]CheckResult, len(registered))
	for len(results) < len(registered) {
		select {
		case f := <-done:
			results[f.name] = f.result
		case <-ctx.Done():
			for name, rc := range registered {
				if _, ok := results[name]; ok {
					continue
				}
				result := resultFor(rc.optional, ctx.Err(), time.Since(start))
				result.Error = "timed out"
				results[name] = result
			}
		}
	}
	return results
}

func resultFor(optional bool, err error, elapsed time.Duration) CheckResult {
	result := CheckResult{
		Status:     StatusHealthy,
		Optional:   optional,
		DurationMS: elapsed.Milliseconds(),
	}
	if err == nil {
		return result
	}
	result.Error = err.Error()
	if optional {
		result.Status = StatusDegraded
	} else {
		result.Status = StatusUnhealthy
	}
	return result
}

func overallStatus(results map[string]CheckResult) string {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) evaluate(r *http.Request) (string, map[string]CheckResult) {
	ctx, cancel := context.WithTimeout(r.Context(), hm.checkTimeout)
	defer cancel()
	results := hm.runChecks(ctx)
	return overallStatus(results), results
}

// HealthHandler serves GET /health with every check result.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, results := hm.evaluate(r)
	if status == StatusUnhealthy {
		respondWithError(w, r, unavailableEnvelope("aggregate health check failed", "aggregate", results))
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
	})
}

// ReadinessHandler answers 503 while a critical checker fails. A degraded
// service still takes submissions.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	status, results := hm.evaluate(r)
	if status == StatusUnhealthy {
		respondWithError(w, r, unavailableEnvelope("readiness check failed", "ready", results))
		return
	}
	writeJSON(w, http.StatusOK, hm.statusResponse(status))
}

// LivenessHandler reports that the process is serving; it runs no checkers
// so a slow registry or journal never gets the process restarted.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hm.statusResponse(StatusHealthy))
}

func (hm *HealthManager) statusResponse(status string) StatusResponse {
	return StatusResponse{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(hm.started).Seconds()),
	}
}

func unavailableEnvelope(message, endpoint string, results map[string]CheckResult) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(apperrors.CodeServiceUnavailable, message)

	details := map[string]interface{}{
		"status":   StatusUnhealthy,
		"endpoint": endpoint,
	}
	if len(results) > 0 {
		details["checks"] = results
	}
	envelope = envelope.WithDetails(details)

	var failing []string
	for name, result := range results {
		if result.Status == StatusUnhealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		envelope, _ = envelope.WithContext(map[string]interface{}{"failing_checks": failing})
	}
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager installs the manager the package-level handlers use.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func withManager(endpoint string, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if globalHealthManager == nil {
			respondWithError(w, r, unavailableEnvelope("health manager not initialized", endpoint, nil))
			return
		}
		serve(globalHealthManager, w, r)
	}
}

var (
	HealthHandler    = withManager("aggregate", (*HealthManager).HealthHandler)
	LivenessHandler  = withManager("live", (*HealthManager).LivenessHandler)
	ReadinessHandler = withManager("ready", (*HealthManager).ReadinessHandler)
)
