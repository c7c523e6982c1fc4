package handlers

import (
	"net/http"

	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
)

type errorResponder func(http.ResponseWriter, *http.Request, error)

var httpErrorResponder errorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder lets the server install its central error handler.
// nil restores the plain envelope responder.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		httpErrorResponder = apperrors.RespondWithError
		return
	}
	httpErrorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
