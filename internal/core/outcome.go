package core

import "time"

// Rejection carries the registry's error triple for api_rejected outcomes.
type Rejection struct {
	Code         string `json:"code"`
	ErrorMessage string `json:"error_message,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Provenance captures how a submission was processed.
type Provenance struct {
	SubmissionID string        `json:"submission_id"`
	RequestedAt  time.Time     `json:"requested_at"`
	AdmittedAt   *time.Time    `json:"admitted_at,omitempty"`
	ResolvedAt   time.Time     `json:"resolved_at"`
	GateWait     time.Duration `json:"gate_wait"`
	Endpoint     string        `json:"endpoint"`
	ToolVersion  string        `json:"tool_version,omitempty"`
	RequestID    string        `json:"request_id,omitempty"`
}

// SubmissionOutcome is the single result of one submission attempt.
type SubmissionOutcome struct {
	Kind         OutcomeKind   `json:"kind"`
	DocumentID   string        `json:"document_id,omitempty"`
	Rejection    *Rejection    `json:"rejection,omitempty"`
	StatusCode   int           `json:"status_code,omitempty"`
	Message      string        `json:"message,omitempty"`
	DocumentType DocumentType  `json:"document_type"`
	ProductGroup *ProductGroup `json:"product_group,omitempty"`
	Provenance   Provenance    `json:"provenance"`

	cause error
}

// Succeeded reports whether the registry accepted the document.
func (o *SubmissionOutcome) Succeeded() bool {
	return o != nil && o.Kind == KindSuccess
}

// Err returns nil for success and a kind-tagged error otherwise.
func (o *SubmissionOutcome) Err() error {
	if o == nil {
		return NewError(KindUnknown, "submit", nil)
	}
	if o.Kind == KindSuccess {
		return nil
	}
	if o.cause != nil {
		if tagged, ok := o.cause.(*Error); ok && tagged.Kind == o.Kind {
			return tagged
		}
		return NewError(o.Kind, "submit", o.cause)
	}
	if o.Rejection != nil {
		return Errorf(o.Kind, "submit", "%s: %s (%s)", o.Rejection.Code, o.Rejection.ErrorMessage, o.Rejection.Description)
	}
	return NewError(o.Kind, "submit", nil)
}

// WithCause attaches the underlying error of a failed outcome.
func (o *SubmissionOutcome) WithCause(err error) *SubmissionOutcome {
	o.cause = err
	if err != nil && o.Message == "" {
		o.Message = err.Error()
	}
	return o
}

// Cause returns the underlying error, if any.
func (o *SubmissionOutcome) Cause() error {
	return o.cause
}

// ClassifyResponse maps a decoded registry reply to an outcome kind.
func ClassifyResponse(resp APIResponse) (OutcomeKind, string, *Rejection) {
	if resp.Value != nil {
		return KindSuccess, *resp.Value, nil
	}
	if resp.Code != nil {
		return KindAPIRejected, "", &Rejection{
			Code:         *resp.Code,
			ErrorMessage: deref(resp.ErrorMessage),
			Description:  deref(resp.Description),
		}
	}
	return KindEmptyResponse, "", nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
