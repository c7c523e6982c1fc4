package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

func captureExit(t *testing.T) (*int, *bytes.Buffer) {
	t.Helper()
	code := -1
	var out bytes.Buffer
	prevExit, prevOut := exitFunc, fatalOut
	exitFunc = func(c int) { code = c }
	fatalOut = &out
	t.Cleanup(func() {
		exitFunc, fatalOut = prevExit, prevOut
	})
	return &code, &out
}

func TestExitForErrorMapsSubmissionKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"config", core.Errorf(core.KindConfig, "validate config", "api.base_url is required"), foundry.ExitConfigInvalid},
		{"network timeout", core.Errorf(core.KindNetworkTimeout, "submit", "first failure: %s", core.KindNetworkTimeout), foundry.ExitExternalServiceUnavailable},
		{"network error", core.Errorf(core.KindNetworkError, "submit", "connection refused"), foundry.ExitExternalServiceUnavailable},
		{"empty response", core.Errorf(core.KindEmptyResponse, "submit", "no value"), foundry.ExitExternalServiceUnavailable},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), foundry.ExitExternalServiceUnavailable},
		{"api rejected", core.Errorf(core.KindAPIRejected, "submit", "status 400"), foundry.ExitFailure},
		{"cancelled", context.Canceled, foundry.ExitFailure},
		{"untagged", errors.New("boom"), foundry.ExitFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := captureExit(t)
			ExitForError(nil, "submission failed", tc.err)
			assert.Equal(t, int(tc.want), *code)
		})
	}
}

func TestExitForErrorWritesOutcomeToStderr(t *testing.T) {
	code, out := captureExit(t)

	ExitForError(nil, "2 of 3 submissions failed",
		core.Errorf(core.KindAPIRejected, "submit", "first failure: %s", core.KindAPIRejected))

	assert.Equal(t, int(foundry.ExitFailure), *code)
	text := out.String()
	assert.Contains(t, text, "FATAL: 2 of 3 submissions failed")
	assert.Contains(t, text, "Outcome: api_rejected")
	assert.Contains(t, text, fmt.Sprintf("Exit Code: %d", foundry.ExitFailure))
}

func TestExitForErrorUntaggedOmitsOutcome(t *testing.T) {
	_, out := captureExit(t)

	ExitForError(nil, "Command execution failed", errors.New("unknown flag: --bogus"))

	assert.NotContains(t, out.String(), "Outcome:")
}

func TestExitForErrorWithLoggerSkipsStderr(t *testing.T) {
	observability.InitCLILogger("test", false)
	require.NotNil(t, observability.CLILogger)
	code, out := captureExit(t)

	ExitForError(observability.CLILogger, "Invalid configuration",
		core.Errorf(core.KindConfig, "validate config", "rate_limit.limit must be positive"))

	assert.Equal(t, int(foundry.ExitConfigInvalid), *code)
	assert.Empty(t, out.String())
}

func TestExitFieldsCarryOutcomeKind(t *testing.T) {
	info := exitInfo(foundry.ExitExternalServiceUnavailable)
	fields := exitFields(info, core.Errorf(core.KindNetworkTimeout, "submit", "deadline"))

	keys := make(map[string]string, len(fields))
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "network_timeout", keys["outcome_kind"])
	assert.Equal(t, info.Name, keys["exit_name"])
}
