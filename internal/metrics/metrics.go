// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package metrics

import (
	"context"
	"fmt"
	"os"

	promregistry "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics is the interface for OpenTelemetry metrics configuration.
type Metrics interface {
	// Meter returns the meter for creating metrics.
	Meter() metric.Meter
	// Registry returns the Prometheus registry if metrics are exported to Prometheus, nil otherwise.
	Registry() *promregistry.Registry
	// Shutdown shuts down the metrics provider.
	Shutdown(context.Context) error
}

var _ Metrics = (*metricsImpl)(nil)

type metricsImpl struct {
	meter    metric.Meter
	registry *promregistry.Registry
	// shutdown is nil when we didn't create mp.
	shutdown func(context.Context) error
}

// Meter implements the same method as documented on Metrics.
func (m *metricsImpl) Meter() metric.Meter {
	return m.meter
}

// Registry implements the same method as documented on Metrics.
func (m *metricsImpl) Registry() *promregistry.Registry {
	return m.registry
}

// Shutdown implements the same method as documented on Metrics.
func (m *metricsImpl) Shutdown(ctx context.Context) error {
	if m.shutdown != nil {
		return m.shutdown(ctx)
	}
	return nil
}

// NoopMetrics returns a no-op metrics implementation.
type NoopMetrics struct{}

// Meter returns a no-op meter.
func (NoopMetrics) Meter() metric.Meter { return noop.NewMeterProvider().Meter("noop") }

// Registry returns nil for no-op metrics.
func (NoopMetrics) Registry() *promregistry.Registry { return nil }

// Shutdown is a no-op.
func (NoopMetrics) Shutdown(context.Context) error { return nil }

// NewMetricsFromEnv configures OpenTelemetry metrics based on environment
// variables. Returns a metrics graph that is noop when disabled. Unlike the
// teacher, this module exports exclusively to Prometheus — there is no
// control-plane pushing OTLP metrics elsewhere in this deployment shape, so
// the generic autoexport path was dropped (see DESIGN.md).
func NewMetricsFromEnv(ctx context.Context) (Metrics, error) {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return NoopMetrics{}, nil
	}
	if exporter := os.Getenv("OTEL_METRICS_EXPORTER"); exporter == "none" {
		return NoopMetrics{}, nil
	}

	// The Prometheus reader scrapes instruments directly and ignores the
	// resource attached to the MeterProvider, so we don't bother building
	// one here (matching the teacher's own prometheus special-case).
	registry := promregistry.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))

	return &metricsImpl{
		meter:    mp.Meter("picturebook"),
		registry: registry,
		shutdown: mp.Shutdown,
	}, nil
}

// NewMetrics configures OpenTelemetry metrics based on the configuration.
// Returns a metrics graph that is noop when the meter is no-op.
func NewMetrics(meter metric.Meter, registry *promregistry.Registry) Metrics {
	if _, ok := meter.(noop.Meter); ok {
		return NoopMetrics{}
	}
	return &metricsImpl{
		meter:    meter,
		registry: registry,
		shutdown: nil, // shutdown is nil when we didn't create mp.
	}
}
