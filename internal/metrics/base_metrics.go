// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/n1n-api/picturebook/internal/model"
)

// baseMetrics provides the shared request-timing and attribute-building
// logic every concrete metrics implementation in this package composes.
type baseMetrics struct {
	metrics      *genAI
	operation    string
	requestStart time.Time
	model        string
	backend      string
}

// newBaseMetrics creates a new baseMetrics instance for the given operation.
func newBaseMetrics(meter metric.Meter, operation string) (baseMetrics, error) {
	g, err := newGenAI(meter)
	if err != nil {
		return baseMetrics{}, fmt.Errorf("build base metrics for %s: %w", operation, err)
	}
	return baseMetrics{
		metrics:   g,
		operation: operation,
		model:     "unknown",
		backend:   "unknown",
	}, nil
}

// StartRequest initializes timing for a new request.
func (b *baseMetrics) StartRequest() {
	b.requestStart = time.Now()
}

// SetModel sets the model for the request.
func (b *baseMetrics) SetModel(m string) {
	b.model = m
}

// SetBackend sets the gen_ai.system attribute from the generator variant
// actually used, per https://opentelemetry.io/docs/specs/semconv/attributes-registry/gen-ai/#gen-ai-system
func (b *baseMetrics) SetBackend(providerType model.ProviderType) {
	switch providerType {
	case model.ProviderNativeMultimodal:
		b.backend = genaiSystemNative
	case model.ProviderOpenAICompatible:
		b.backend = genaiSystemOpenAICompatible
	case model.ProviderImageAPI:
		b.backend = genaiSystemImageAPI
	default:
		b.backend = string(providerType)
	}
}

// buildBaseAttributes creates the base attribute set for metrics recording.
func (b *baseMetrics) buildBaseAttributes() attribute.Set {
	return attribute.NewSet(
		attribute.Key(genaiAttributeOperationName).String(b.operation),
		attribute.Key(genaiAttributeSystemName).String(b.backend),
		attribute.Key(genaiAttributeRequestModel).String(b.model),
	)
}

// RecordRequestCompletion records the completion of a request with success/failure status.
func (b *baseMetrics) RecordRequestCompletion(ctx context.Context, success bool) {
	attrs := b.buildBaseAttributes()

	if success {
		// Per the semantic conventions, error.type is only added for failures.
		b.metrics.requestLatency.Record(ctx, time.Since(b.requestStart).Seconds(), metric.WithAttributeSet(attrs))
		return
	}
	b.metrics.requestLatency.Record(ctx, time.Since(b.requestStart).Seconds(),
		metric.WithAttributeSet(attrs),
		metric.WithAttributes(attribute.Key(genaiAttributeErrorType).String(genaiErrorTypeFallback)),
	)
}
