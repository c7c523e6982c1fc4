package core

// Envelope is the request body of the document create endpoint.
type Envelope struct {
	DocumentFormat  DocumentFormat  `json:"documentFormat"`
	ProductDocument ProductDocument `json:"productDocument"`
	ProductGroup    *int            `json:"productGroup,omitempty"`
	Signature       string          `json:"signature"`
	Type            DocumentType    `json:"type"`
}

// NewEnvelope wraps a request in the wire envelope using the MANUAL format.
func NewEnvelope(req SubmissionRequest) (Envelope, error) {
	code, err := GroupCode(req.Group)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		DocumentFormat:  DocumentFormatManual,
		ProductDocument: req.Document,
		ProductGroup:    code,
		Signature:       req.Signature,
		Type:            req.Type,
	}, nil
}

// APIResponse is the registry's reply. Either Value or Code is set.
type APIResponse struct {
	Value        *string `json:"value,omitempty"`
	Code         *string `json:"code,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	Description  *string `json:"description,omitempty"`
}
