package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
	"github.com/IIExpanse/honest-sign-test-task/internal/metrics"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

// Recovery turns a handler panic into an unknown_error envelope. The stack
// goes to the server log only. A panic after the handler started writing
// cannot change the response and is just logged.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := wrapWriter(w)
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}

			metrics.RecordPanic()
			if observability.ServerLogger != nil {
				observability.ServerLogger.Error("Handler panicked",
					zap.String("path", r.URL.Path),
					zap.String("request_id", core.RequestID(r.Context())),
					zap.String("panic", fmt.Sprint(p)),
					zap.ByteString("stack", debug.Stack()))
			}
			if rec.wroteHeader {
				return
			}

			envelope := errors.NewErrorEnvelope(apperrors.CodeInternal, "internal error while handling request").
				WithDetails(map[string]interface{}{"kind": string(core.KindUnknown)})
			envelope, _ = envelope.WithSeverity(errors.SeverityCritical)
			w.Header().Set(apperrors.OutcomeKindHeader, string(core.KindUnknown))
			apperrors.RespondWithEnvelope(w, r, envelope)
		}()

		next.ServeHTTP(rec, r)
	})
}
