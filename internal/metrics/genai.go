// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// genAI holds the OpenTelemetry instruments shared by every metrics
// implementation in this package. See: https://opentelemetry.io/docs/specs/semconv/gen-ai/gen-ai-metrics/
type genAI struct {
	// tokenUsage is the number of tokens processed. Always 0 for image
	// generation, recorded anyway for semantic-convention consistency.
	// See: https://opentelemetry.io/docs/specs/semconv/gen-ai/gen-ai-metrics/#metric-gen_aiclienttokenusage
	tokenUsage metric.Int64Histogram

	// requestLatency is the total latency of the request, from submission
	// to the generator through upload of the resulting artifact.
	// See: https://opentelemetry.io/docs/specs/semconv/gen-ai/gen-ai-metrics/#metric-gen_aiserverrequestduration
	requestLatency metric.Float64Histogram
}

// newGenAI creates the gen-ai instrument set on the given meter.
func newGenAI(meter metric.Meter) (*genAI, error) {
	tokenUsage, err := meter.Int64Histogram(
		"gen_ai.client.token.usage",
		metric.WithDescription("Number of tokens processed."),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create token usage histogram: %w", err)
	}

	requestLatency, err := meter.Float64Histogram(
		"gen_ai.server.request.duration",
		metric.WithDescription("Time spent processing request."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request latency histogram: %w", err)
	}

	return &genAI{tokenUsage: tokenUsage, requestLatency: requestLatency}, nil
}
