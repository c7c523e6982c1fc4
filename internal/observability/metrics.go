package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// defaultMetricsPort is assumed when the exporter's port is unknown.
const defaultMetricsPort = 9090

var (
	// TelemetrySystem receives submission, gate and HTTP metrics. Nil while
	// metrics are off; emitters must check.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves TelemetrySystem on its own port.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts the Prometheus exporter on port (0 picks a free one)
// and routes telemetry to it. Every metric name gets the namespace prefix.
func InitMetrics(namespace string, port int) error {
	if port < 0 {
		port = 0
	}

	exporter := exporters.NewPrometheusExporter(namespace, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	bound, err := resolvePort(exporter.GetAddr())
	if err != nil {
		bound = port
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	metricsPort = bound
	return nil
}

// StopMetrics shuts the exporter down. Later emissions are dropped.
func StopMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsPort = 0
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// GetMetricsPort returns the port the exporter is bound to, or 0.
func GetMetricsPort() int {
	return metricsPort
}

// MetricsURL is the loopback scrape address of the exporter.
func MetricsURL() string {
	port := metricsPort
	if port == 0 {
		port = defaultMetricsPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
