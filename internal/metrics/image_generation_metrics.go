// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/n1n-api/picturebook/internal/model"
)

// imageGeneration is the implementation of ImageGenerationMetrics.
type imageGeneration struct {
	baseMetrics
}

// ImageGenerationMetrics is the gen-ai-semantic-convention metrics surface
// for one image-generation request, adapted from the teacher's interface of
// the same name onto the three provider variants this module drives.
type ImageGenerationMetrics interface {
	// StartRequest initializes timing for a new request.
	StartRequest()
	// SetRequestModel sets the model name used for the request.
	SetRequestModel(requestModel string)
	// SetBackend sets the generator variant used, once the routing
	// decision (provider config) is known.
	SetBackend(providerType model.ProviderType)

	// RecordTokenUsage records token usage metrics (always 0 for image
	// generation, recorded for semantic-convention consistency).
	RecordTokenUsage(ctx context.Context, inputTokens, outputTokens uint32)
	// RecordRequestCompletion records latency metrics for the entire request.
	RecordRequestCompletion(ctx context.Context, success bool)
	// RecordImageGeneration records metrics specific to image generation.
	RecordImageGeneration(ctx context.Context, imageCount int, imageModel, size string)
	// GetTimeToGenerate returns the time elapsed since StartRequest.
	GetTimeToGenerate() time.Duration
}

// NewImageGeneration creates a new ImageGenerationMetrics instance.
func NewImageGeneration(meter metric.Meter) (ImageGenerationMetrics, error) {
	base, err := newBaseMetrics(meter, genaiOperationImageGeneration)
	if err != nil {
		return nil, err
	}
	return &imageGeneration{baseMetrics: base}, nil
}

// StartRequest initializes timing for a new request.
func (i *imageGeneration) StartRequest() {
	i.baseMetrics.StartRequest()
}

// SetRequestModel sets the request model for the request.
func (i *imageGeneration) SetRequestModel(requestModel string) {
	i.baseMetrics.SetModel(requestModel)
}

// RecordTokenUsage implements ImageGenerationMetrics.RecordTokenUsage.
func (i *imageGeneration) RecordTokenUsage(ctx context.Context, inputTokens, outputTokens uint32) {
	attrs := i.buildBaseAttributes()

	i.metrics.tokenUsage.Record(ctx, int64(inputTokens),
		metric.WithAttributeSet(attrs),
		metric.WithAttributes(attribute.Key(genaiAttributeTokenType).String(genaiTokenTypeInput)),
	)
	i.metrics.tokenUsage.Record(ctx, int64(outputTokens),
		metric.WithAttributeSet(attrs),
		metric.WithAttributes(attribute.Key(genaiAttributeTokenType).String(genaiTokenTypeOutput)),
	)
}

// RecordImageGeneration implements ImageGenerationMetrics.RecordImageGeneration.
func (i *imageGeneration) RecordImageGeneration(ctx context.Context, imageCount int, imageModel, size string) {
	attrs := i.buildBaseAttributes()

	extendedAttrs := attribute.NewSet(
		append(attrs.ToSlice(),
			attribute.Key(genaiAttributeImageCount).Int(imageCount),
			attribute.Key(genaiAttributeImageModel).String(imageModel),
			attribute.Key(genaiAttributeImageSize).String(size),
		)...,
	)

	i.metrics.requestLatency.Record(ctx, time.Since(i.requestStart).Seconds(), metric.WithAttributeSet(extendedAttrs))
}

// GetTimeToGenerate returns the time taken to generate images so far.
func (i *imageGeneration) GetTimeToGenerate() time.Duration {
	return time.Since(i.requestStart)
}
