// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/n1n-api/picturebook/internal/orchestrator"
)

// OrchestratorAdapter bridges the engine's narrow Metrics interface onto
// this package's OpenTelemetry instruments, so RecordPageGeneration/
// RecordTaskCompletion calls made from internal/orchestrator actually reach
// the Prometheus registry instead of only ever hitting NoopMetrics.
type OrchestratorAdapter struct {
	meter           metric.Meter
	pagesGenerated  metric.Int64Counter
	pageAttempts    metric.Int64Histogram
	tasksCompleted  metric.Int64Counter
	taskPageOutcome metric.Int64Counter
}

var _ orchestrator.Metrics = (*OrchestratorAdapter)(nil)

// NewOrchestratorAdapter builds an adapter from a configured Metrics meter.
func NewOrchestratorAdapter(m Metrics) (*OrchestratorAdapter, error) {
	meter := m.Meter()

	pagesGenerated, err := meter.Int64Counter(
		"picturebook.pages.generated",
		metric.WithDescription("Number of page images generated, by phase and outcome."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pages generated counter: %w", err)
	}

	pageAttempts, err := meter.Int64Histogram(
		"picturebook.page.attempts",
		metric.WithDescription("Number of generator attempts consumed per page, including retries."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create page attempts histogram: %w", err)
	}

	tasksCompleted, err := meter.Int64Counter(
		"picturebook.tasks.completed",
		metric.WithDescription("Number of generation tasks that reached a terminal state."),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tasks completed counter: %w", err)
	}

	taskPageOutcome, err := meter.Int64Counter(
		"picturebook.task.pages",
		metric.WithDescription("Per-task page counts at completion, by outcome."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create task page outcome counter: %w", err)
	}

	return &OrchestratorAdapter{
		meter:           meter,
		pagesGenerated:  pagesGenerated,
		pageAttempts:    pageAttempts,
		tasksCompleted:  tasksCompleted,
		taskPageOutcome: taskPageOutcome,
	}, nil
}

// NewRequestMetrics implements orchestrator.Metrics, handing the engine a
// fresh gen-ai-semantic-convention recorder for one page generation,
// covering all of its retry attempts.
func (a *OrchestratorAdapter) NewRequestMetrics() (orchestrator.RequestMetrics, error) {
	return NewImageGeneration(a.meter)
}

// RecordPageGeneration implements orchestrator.Metrics.
func (a *OrchestratorAdapter) RecordPageGeneration(ctx context.Context, phase orchestrator.Phase, model string, success bool, attempts int) {
	attrs := metric.WithAttributes(
		attribute.String("phase", string(phase)),
		attribute.String("model", model),
		attribute.Bool("success", success),
	)
	a.pagesGenerated.Add(ctx, 1, attrs)
	a.pageAttempts.Record(ctx, int64(attempts), attrs)
}

// RecordTaskCompletion implements orchestrator.Metrics.
func (a *OrchestratorAdapter) RecordTaskCompletion(ctx context.Context, success bool, total, completed, failed int) {
	a.tasksCompleted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	a.taskPageOutcome.Add(ctx, int64(total), metric.WithAttributes(attribute.String("outcome", "total")))
	a.taskPageOutcome.Add(ctx, int64(completed), metric.WithAttributes(attribute.String("outcome", "completed")))
	a.taskPageOutcome.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failed")))
}
