package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	errwrap "github.com/IIExpanse/honest-sign-test-task/internal/errors"
)

var exitFunc = os.Exit

var fatalOut io.Writer = os.Stderr

// ExitForError exits with the foundry code for err's outcome kind:
// config_error is ExitConfigInvalid, transport failures are
// ExitExternalServiceUnavailable and every other failure is ExitFailure.
// A nil logger writes to stderr.
func ExitForError(logger *logging.Logger, msg string, err error) {
	exitWithCode(logger, errwrap.ExitCodeForKind(core.KindOf(err)), msg, err)
}

// exitWithCode logs msg and err with the exit code metadata, then exits.
// A nil logger writes to stderr instead.
func exitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info := exitInfo(exitCode)
	if logger != nil {
		logger.Error(msg, exitFields(info, err)...)
	} else {
		writeFatal(fatalOut, info, msg, err)
	}
	exitFunc(info.Code)
}

func exitInfo(exitCode foundry.ExitCode) foundry.ExitCodeInfo {
	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		return info
	}
	return foundry.ExitCodeInfo{Code: int(exitCode), Name: "UNKNOWN"}
}

func exitFields(info foundry.ExitCodeInfo, err error) []zap.Field {
	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if err == nil {
		return fields
	}
	if kind := core.KindOf(err); kind != core.KindUnknown {
		fields = append(fields, zap.String("outcome_kind", string(kind)))
	}
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
	}
	return append(fields, zap.Error(err))
}

func writeFatal(w io.Writer, info foundry.ExitCodeInfo, msg string, err error) {
	if err == nil {
		fmt.Fprintf(w, "FATAL: %s\n", msg)
	} else {
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
		if kind := core.KindOf(err); kind != core.KindUnknown {
			fmt.Fprintf(w, "Outcome: %s\n", kind)
		}
	}
	fmt.Fprintf(w, "Exit Code: %d (%s)\n", info.Code, info.Name)
}
