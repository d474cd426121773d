// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"context"

	"github.com/n1n-api/picturebook/internal/model"
)

// RequestMetrics is the gen-ai-semantic-convention recorder for a single
// page generation, covering all of its retry attempts. A fresh instance is
// obtained per page generation since it carries request-scoped state
// (start time, model, backend).
type RequestMetrics interface {
	StartRequest()
	SetRequestModel(requestModel string)
	SetBackend(providerType model.ProviderType)
	RecordTokenUsage(ctx context.Context, inputTokens, outputTokens uint32)
	RecordRequestCompletion(ctx context.Context, success bool)
	RecordImageGeneration(ctx context.Context, imageCount int, imageModel, size string)
}

// Metrics is the subset of observability the engine emits through. Kept
// narrow and local so the engine doesn't depend on a specific exporter
// wiring; internal/metrics supplies the concrete implementation.
type Metrics interface {
	RecordPageGeneration(ctx context.Context, phase Phase, model string, success bool, attempts int)
	RecordTaskCompletion(ctx context.Context, success bool, total, completed, failed int)
	// NewRequestMetrics returns a RequestMetrics scoped to one generation
	// attempt; the engine calls it once per call to generateOneWithRetry.
	NewRequestMetrics() (RequestMetrics, error)
}

// NoopMetrics discards everything. Used when no exporter is configured.
type NoopMetrics struct{}

func (NoopMetrics) RecordPageGeneration(context.Context, Phase, string, bool, int) {}
func (NoopMetrics) RecordTaskCompletion(context.Context, bool, int, int, int)      {}
func (NoopMetrics) NewRequestMetrics() (RequestMetrics, error)                     { return noopRequestMetrics{}, nil }

type noopRequestMetrics struct{}

func (noopRequestMetrics) StartRequest()                                             {}
func (noopRequestMetrics) SetRequestModel(string)                                    {}
func (noopRequestMetrics) SetBackend(model.ProviderType)                             {}
func (noopRequestMetrics) RecordTokenUsage(context.Context, uint32, uint32)           {}
func (noopRequestMetrics) RecordRequestCompletion(context.Context, bool)              {}
func (noopRequestMetrics) RecordImageGeneration(context.Context, int, string, string) {}
