// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/n1n-api/picturebook/internal/imagegen"
	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/prompt"
	"github.com/n1n-api/picturebook/internal/taskstate"
)

// maxConcurrent bounds the number of content pages generated in parallel
// within a single task, per spec.md §5.
const maxConcurrent = 15

// autoRetryCount is the number of attempts (including the first) the engine
// makes for a single page before surfacing a failure, per spec.md §4.3.
const autoRetryCount = 3

// ConfigSource supplies the currently active image-provider configuration.
// Implementations may hot-reload; the engine re-reads it at the start of
// every top-level call, never mid-task.
type ConfigSource interface {
	ActiveImageProvider() model.ProviderConfig
}

// ObjectStore is the storage capability the engine needs: upload bytes
// under a key, resolve a key to a URL. *objectstore.Client satisfies this;
// tests substitute an in-memory fake.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URLFor(key string) string
}

// Engine drives the cover-then-content image generation pipeline described
// in spec.md §4.5, streaming ProgressEvent values to its caller and
// recording per-task state in an in-memory taskstate.Registry.
type Engine struct {
	config    ConfigSource
	store     ObjectStore
	templater *prompt.Templater
	registry  *taskstate.Registry
	metrics   Metrics
	logger    *slog.Logger

	// newGenerator is indirected for tests; defaults to imagegen.NewGenerator.
	newGenerator func(model.ProviderConfig) (imagegen.Generator, error)
}

// New constructs an Engine. metrics and logger may be nil; nil metrics is
// replaced with NoopMetrics, nil logger with slog.Default().
func New(cfg ConfigSource, store ObjectStore, templater *prompt.Templater, registry *taskstate.Registry, m Metrics, logger *slog.Logger) *Engine {
	if m == nil {
		m = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:       cfg,
		store:        store,
		templater:    templater,
		registry:     registry,
		metrics:      m,
		logger:       logger,
		newGenerator: imagegen.NewGenerator,
	}
}

// currentGenerator resolves the active provider config and builds a fresh
// Generator for it. Building per-call (rather than caching) means a config
// hot-reload takes effect on the next GenerateImages/RetrySingle call
// without restarting in-flight tasks, which keep the generator instance
// they were handed at start.
func (e *Engine) currentGenerator() (model.ProviderConfig, imagegen.Generator, error) {
	cfg := e.config.ActiveImageProvider()
	if cfg.Type == "" {
		return model.ProviderConfig{}, nil, errors.New("no active image provider configured")
	}
	gen, err := e.newGenerator(cfg)
	if err != nil {
		return model.ProviderConfig{}, nil, fmt.Errorf("build generator: %w", err)
	}
	return cfg, gen, nil
}

// GetTaskState returns a snapshot of the named task's state, and whether it
// exists.
func (e *Engine) GetTaskState(taskID string) (taskstate.Snapshot, bool) {
	st := e.registry.Get(taskID)
	if st == nil {
		return taskstate.Snapshot{}, false
	}
	return st.Snapshot(), true
}

// CleanupTask discards a task's in-memory state. It does not delete any
// uploaded artifact.
func (e *Engine) CleanupTask(taskID string) {
	e.registry.Delete(taskID)
}

func sendEvent(ctx context.Context, ch chan<- ProgressEvent, ev ProgressEvent) {
	if ctx.Err() != nil {
		return
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
