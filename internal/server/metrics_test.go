package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
	"github.com/IIExpanse/honest-sign-test-task/internal/metrics"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestMetricsEndpointExposesSubmissionCounters(t *testing.T) {
	require.NoError(t, observability.InitMetrics("crptdoc_test", 0))
	t.Cleanup(func() { _ = observability.StopMetrics() })
	require.NotZero(t, observability.GetMetricsPort())

	metrics.RecordSubmission(&core.SubmissionOutcome{
		Kind:         core.KindAPIRejected,
		DocumentType: core.DocumentTypeIntroduceGoods,
	})

	srv := New(config.ServerConfig{Host: "127.0.0.1"}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body := rec.Body.String()
	assert.Contains(t, body, "crptdoc_test_registry_submissions_total")
	assert.Contains(t, body, `kind="api_rejected"`)
}

func TestMetricsEndpointWhenDisabled(t *testing.T) {
	require.NoError(t, observability.StopMetrics())

	srv := New(config.ServerConfig{Host: "127.0.0.1"}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeServiceUnavailable, body.Error.Code)
}

func TestMetricsEndpointExporterUnreachable(t *testing.T) {
	require.NoError(t, observability.InitMetrics("crptdoc_test", 0))
	t.Cleanup(func() { _ = observability.StopMetrics() })

	original := metricsProxyClient
	metricsProxyClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	t.Cleanup(func() { metricsProxyClient = original })

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), apperrors.CodeExternalService)
}
