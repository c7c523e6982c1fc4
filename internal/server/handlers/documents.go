package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/engine"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/store"
)

const (
	maxDocumentBytes    = 1 << 20
	defaultJournalLimit = 50
	maxJournalLimit     = 1000
)

// Submitter performs one registry submission.
type Submitter interface {
	Submit(ctx context.Context, req core.SubmissionRequest) *core.SubmissionOutcome
}

// GateInspector exposes the shared gate state.
type GateInspector interface {
	Snapshot() engine.GateSnapshot
}

// JournalReader lists recorded submissions.
type JournalReader interface {
	ListSubmissions(ctx context.Context, q store.SubmissionQuery) ([]core.SubmissionOutcome, error)
}

// DocumentsAPI serves the submission endpoints. Every request shares the
// submitter's gate, so concurrent clients together stay within the limit.
type DocumentsAPI struct {
	Submitter Submitter
	Gate      GateInspector
	Journal   JournalReader

	// OnOutcome is called for every resolved submission, e.g. for metrics
	OnOutcome func(*core.SubmissionOutcome)
}

// GateResponse describes the gate for API clients.
type GateResponse struct {
	Limit      int         `json:"limit"`
	Window     string      `json:"window"`
	WindowMS   int64       `json:"window_ms"`
	Active     int         `json:"active"`
	Waiting    int         `json:"waiting"`
	Slots      []time.Time `json:"slots"`
	NextFreeAt *time.Time  `json:"next_free_at,omitempty"`
}

// SubmissionsResponse wraps a journal page.
type SubmissionsResponse struct {
	Count       int                      `json:"count"`
	Submissions []core.SubmissionOutcome `json:"submissions"`
}

// CreateDocument handles POST /v1/documents.
func (a *DocumentsAPI) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if a == nil || a.Submitter == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("submission pipeline not configured"))
		return
	}

	var input core.SubmissionInput
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err := decoder.Decode(&input); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body is not a valid submission"))
		return
	}

	req, err := input.Request()
	if err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, err.Error()))
		return
	}

	outcome := a.Submitter.Submit(r.Context(), req)
	if a.OnOutcome != nil {
		a.OnOutcome(outcome)
	}

	if outcome != nil {
		w.Header().Set(apperrors.OutcomeKindHeader, string(outcome.Kind))
		if outcome.Provenance.SubmissionID != "" {
			w.Header().Set("X-Submission-ID", outcome.Provenance.SubmissionID)
		}
	}
	if envelope := apperrors.FromOutcome(r.Context(), outcome); envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	writeJSON(w, http.StatusCreated, outcome)
}

// GetGate handles GET /v1/gate.
func (a *DocumentsAPI) GetGate(w http.ResponseWriter, r *http.Request) {
	if a == nil || a.Gate == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("rate gate not configured"))
		return
	}

	snap := a.Gate.Snapshot()
	writeJSON(w, http.StatusOK, GateResponse{
		Limit:      snap.Limit,
		Window:     snap.Window.String(),
		WindowMS:   snap.Window.Milliseconds(),
		Active:     snap.Active,
		Waiting:    snap.Waiting,
		Slots:      snap.Slots,
		NextFreeAt: snap.NextFreeAt,
	})
}

// ListSubmissions handles GET /v1/submissions?kind=&type=&since=&before=&limit=.
func (a *DocumentsAPI) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	if a == nil || a.Journal == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("submission journal is disabled"))
		return
	}

	query, err := parseSubmissionQuery(r)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, err.Error()))
		return
	}

	entries, err := a.Journal.ListSubmissions(r.Context(), query)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list submissions"))
		return
	}

	writeJSON(w, http.StatusOK, SubmissionsResponse{Count: len(entries), Submissions: entries})
}

func parseSubmissionQuery(r *http.Request) (store.SubmissionQuery, error) {
	values := r.URL.Query()
	query := store.SubmissionQuery{
		All:   true,
		ID:    strings.TrimSpace(values.Get("id")),
		Kind:  core.OutcomeKind(strings.TrimSpace(values.Get("kind"))),
		Limit: defaultJournalLimit,
	}

	if raw := strings.TrimSpace(values.Get("type")); raw != "" {
		docType, err := core.ParseDocumentType(raw)
		if err != nil {
			return query, err
		}
		query.DocumentType = docType
	}

	for key, target := range map[string]*time.Time{"since": &query.Since, "before": &query.Before} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, &queryError{param: key, err: err}
		}
		*target = parsed
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return query, &queryError{param: "limit", err: strconv.ErrSyntax}
		}
		if limit > maxJournalLimit {
			limit = maxJournalLimit
		}
		query.Limit = limit
	}

	return query, query.Validate()
}

type queryError struct {
	param string
	err   error
}

func (e *queryError) Error() string {
	return "invalid " + e.param + ": " + e.err.Error()
}

func (e *queryError) Unwrap() error {
	return e.err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
