package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

func resetLoggers(t *testing.T) {
	t.Helper()
	cli, server := observability.CLILogger, observability.ServerLogger
	t.Cleanup(func() {
		observability.CLILogger = cli
		observability.ServerLogger = server
	})
	observability.CLILogger = nil
	observability.ServerLogger = nil
}

func TestLoggerSelection(t *testing.T) {
	resetLoggers(t)
	assert.Nil(t, observability.Logger())

	observability.InitCLILogger("crptdoc-test", false)
	require.NotNil(t, observability.CLILogger)
	assert.Same(t, observability.CLILogger, observability.Logger())

	observability.InitServerLogger("crptdoc-test", "debug", "crptdoc")
	require.NotNil(t, observability.ServerLogger)
	assert.Same(t, observability.ServerLogger, observability.Logger())

	observability.Logger().Info("submission resolved",
		zap.String("submission_id", "test"),
		zap.String("kind", "success"))
}

func TestVerboseCLILogger(t *testing.T) {
	resetLoggers(t)

	observability.InitCLILogger("crptdoc-test", true)
	require.NotNil(t, observability.CLILogger)
	observability.CLILogger.Debug("gate admitted", zap.Duration("gate_wait", 0))
}

func TestStructuredLoggerConfig(t *testing.T) {
	logger, err := logging.New(&logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: "INFO",
		Service:      "crptdoc-test",
		Environment:  "test",
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("structured record", zap.String("component", "journal"))
}

func TestCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
	assert.NotEmpty(t, crucible.GetVersionString())
}
