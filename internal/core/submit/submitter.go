package submit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

const (
	// DefaultBaseURL is the production registry host.
	DefaultBaseURL = "https://ismp.crpt.ru"

	// CreatePath is the document creation endpoint.
	CreatePath = "/api/v3/lk/documents/create"
)

// Admitter blocks until one registry call may be made.
type Admitter interface {
	Acquire(ctx context.Context) error
}

// Journal records finished submissions.
type Journal interface {
	RecordSubmission(ctx context.Context, outcome *core.SubmissionOutcome) error
}

// Submitter sends documents to the registry through a shared gate.
type Submitter struct {
	Gate        Admitter
	Transport   Transport
	Codec       Codec
	Journal     Journal
	Logger      *logging.Logger
	BaseURL     string
	Token       string
	ToolVersion string
	Clock       func() time.Time

	// MaxGateWait bounds the wait for admission; zero waits until ctx ends.
	// A wait that runs out resolves as cancelled without spending a slot.
	MaxGateWait time.Duration
}

// Submit performs one submission and always returns an outcome. At most one
// gate slot and one network call are spent per call.
func (s *Submitter) Submit(ctx context.Context, req core.SubmissionRequest) (outcome *core.SubmissionOutcome) {
	if ctx == nil {
		ctx = context.Background()
	}

	outcome = &core.SubmissionOutcome{
		DocumentType: req.Type,
		ProductGroup: req.Group,
		Provenance: core.Provenance{
			SubmissionID: uuid.New().String(),
			RequestedAt:  s.now(),
			Endpoint:     s.endpoint(),
			RequestID:    core.RequestID(ctx),
		},
	}
	if s != nil {
		outcome.Provenance.ToolVersion = s.ToolVersion
	}

	defer func() {
		if r := recover(); r != nil {
			fail(outcome, core.KindUnknown, fmt.Errorf("submission panicked: %v", r))
		}
		outcome.Provenance.ResolvedAt = s.now()
		s.record(ctx, outcome)
	}()

	if s == nil || s.Gate == nil {
		return fail(outcome, core.KindConfig, errors.New("submitter is not configured"))
	}
	if err := req.Validate(); err != nil {
		return fail(outcome, core.KindInvalidSubmission, err)
	}

	envelope, err := core.NewEnvelope(req)
	if err != nil {
		return fail(outcome, core.KindInvalidSubmission, err)
	}
	body, err := s.codec().Encode(envelope)
	if err != nil {
		return fail(outcome, core.KindSerialization, err)
	}

	waitStart := s.now()
	if err := s.acquire(ctx); err != nil {
		return fail(outcome, core.KindCancelled, err)
	}
	admittedAt := s.now()
	outcome.Provenance.AdmittedAt = &admittedAt
	outcome.Provenance.GateWait = admittedAt.Sub(waitStart)

	resp, err := s.transport().Post(ctx, outcome.Provenance.Endpoint, body, s.Token)
	if err != nil {
		return fail(outcome, core.KindOf(err), err)
	}
	if resp == nil {
		return fail(outcome, core.KindUnknown, errors.New("transport returned no response"))
	}
	outcome.StatusCode = resp.StatusCode

	var reply core.APIResponse
	if err := s.codec().Decode(resp.Body, &reply); err != nil {
		return fail(outcome, core.KindSerialization, err)
	}

	kind, value, rejection := core.ClassifyResponse(reply)
	outcome.Kind = kind
	outcome.DocumentID = value
	outcome.Rejection = rejection
	switch kind {
	case core.KindSuccess:
		outcome.Message = "document accepted"
	case core.KindAPIRejected:
		outcome.Message = rejection.ErrorMessage
		if outcome.Message == "" {
			outcome.Message = "document rejected: " + rejection.Code
		}
	case core.KindEmptyResponse:
		outcome.Message = "response carried neither value nor code"
	}
	return outcome
}

// fail marks outcome as failed with kind, keeping err as the cause.
func fail(outcome *core.SubmissionOutcome, kind core.OutcomeKind, err error) *core.SubmissionOutcome {
	outcome.Kind = kind
	outcome.Message = ""
	var tagged *core.Error
	if !errors.As(err, &tagged) || tagged.Kind != kind {
		err = core.NewError(kind, "submit", err)
	}
	return outcome.WithCause(err)
}

func (s *Submitter) record(ctx context.Context, outcome *core.SubmissionOutcome) {
	if s == nil {
		return
	}

	if s.Logger != nil {
		fields := []zap.Field{
			zap.String("submission_id", outcome.Provenance.SubmissionID),
			zap.String("kind", string(outcome.Kind)),
			zap.String("document_type", string(outcome.DocumentType)),
			zap.Duration("gate_wait", outcome.Provenance.GateWait),
			zap.Int("status_code", outcome.StatusCode),
		}
		if outcome.Succeeded() {
			s.Logger.Info("Submission accepted", append(fields, zap.String("document_id", outcome.DocumentID))...)
		} else {
			s.Logger.Warn("Submission failed", append(fields, zap.String("message", outcome.Message))...)
		}
	}

	if s.Journal == nil {
		return
	}
	// The caller's context may already be cancelled; the journal write should still land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Journal.RecordSubmission(writeCtx, outcome); err != nil && s.Logger != nil {
		s.Logger.Warn("Failed to journal submission",
			zap.String("submission_id", outcome.Provenance.SubmissionID),
			zap.Error(err),
		)
	}
}

func (s *Submitter) acquire(ctx context.Context) error {
	if s.MaxGateWait <= 0 {
		return s.Gate.Acquire(ctx)
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.MaxGateWait)
	defer cancel()
	return s.Gate.Acquire(waitCtx)
}

func (s *Submitter) endpoint() string {
	base := DefaultBaseURL
	if s != nil && strings.TrimSpace(s.BaseURL) != "" {
		base = strings.TrimSpace(s.BaseURL)
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + CreatePath
	}
	return parsed.JoinPath(CreatePath).String()
}

func (s *Submitter) transport() Transport {
	if s != nil && s.Transport != nil {
		return s.Transport
	}
	return &HTTPTransport{}
}

func (s *Submitter) codec() Codec {
	if s != nil && s.Codec != nil {
		return s.Codec
	}
	return JSONCodec{}
}

func (s *Submitter) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
