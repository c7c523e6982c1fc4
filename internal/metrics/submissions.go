package metrics

import (
	"time"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/engine"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

// Submission and gate metrics
const (
	SubmissionsTotal       = "registry_submissions_total"
	SubmissionDuration     = "registry_submission_duration_ms"
	GateAdmissionsTotal    = "gate_admissions_total"
	GateWaitDuration       = "gate_wait_ms"
	GateCancellationsTotal = "gate_cancellations_total"
)

// RecordSubmission counts one resolved submission by kind and document type.
func RecordSubmission(outcome *core.SubmissionOutcome) {
	if outcome == nil || observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{
		"kind":          string(outcome.Kind),
		"document_type": string(outcome.DocumentType),
	}
	_ = observability.TelemetrySystem.Counter(SubmissionsTotal, 1, labels)

	p := outcome.Provenance
	if !p.ResolvedAt.IsZero() && !p.RequestedAt.IsZero() {
		_ = observability.TelemetrySystem.Histogram(SubmissionDuration, p.ResolvedAt.Sub(p.RequestedAt), labels)
	}
}

// GateObserver feeds gate admissions and cancellations into telemetry.
type GateObserver struct{}

var _ engine.GateObserver = GateObserver{}

func (GateObserver) Admitted(waited time.Duration, _ time.Time) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(GateAdmissionsTotal, 1, nil)
	_ = observability.TelemetrySystem.Histogram(GateWaitDuration, waited, nil)
}

func (GateObserver) Cancelled(waited time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(GateCancellationsTotal, 1, nil)
	_ = observability.TelemetrySystem.Histogram(GateWaitDuration, waited, map[string]string{"result": "cancelled"})
}
