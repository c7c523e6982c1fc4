package core

import "strings"

// SubmissionInput is the document-file and HTTP form of a submission.
// Type falls back to the document's docType when empty.
type SubmissionInput struct {
	Document     ProductDocument `json:"document"`
	ProductGroup string          `json:"product_group,omitempty"`
	Signature    string          `json:"signature"`
	Type         string          `json:"type,omitempty"`
}

// Request resolves the enumerations and validates the result.
func (in SubmissionInput) Request() (SubmissionRequest, error) {
	rawType := strings.TrimSpace(in.Type)
	if rawType == "" {
		rawType = string(in.Document.DocType)
	}
	docType, err := ParseDocumentType(rawType)
	if err != nil {
		return SubmissionRequest{}, NewError(KindInvalidSubmission, "parse input", err)
	}

	group, err := ParseProductGroup(in.ProductGroup)
	if err != nil {
		return SubmissionRequest{}, NewError(KindInvalidSubmission, "parse input", err)
	}

	req := NewSubmissionRequest(in.Document, group, in.Signature, docType)
	if err := req.Validate(); err != nil {
		return SubmissionRequest{}, NewError(KindInvalidSubmission, "parse input", err)
	}
	return req, nil
}
