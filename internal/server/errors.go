package server

import (
	"net/http"

	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
)

// OutcomeKindHeader carries the submission outcome kind on failed requests.
const OutcomeKindHeader = apperrors.OutcomeKindHeader

// HandleError is the central error responder for the server and its handlers.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	envelope := apperrors.EnsureEnvelope(err)
	if kind := outcomeKind(envelope.Details, envelope.Context); kind != "" {
		w.Header().Set(OutcomeKindHeader, kind)
	}
	apperrors.RespondWithEnvelope(w, r, envelope)
}

func outcomeKind(sources ...map[string]interface{}) string {
	for _, source := range sources {
		if kind, ok := source["kind"].(string); ok && kind != "" {
			return kind
		}
	}
	return ""
}
