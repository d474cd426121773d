// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package transport wires the inbound HTTP/SSE API onto the orchestration
// engine. It contains no orchestration logic of its own: handlers parse a
// request, call into internal/orchestrator or internal/outline, and stream
// or marshal the result, per SPEC_FULL.md §4.11.
package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/n1n-api/picturebook/internal/catalog"
	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/orchestrator"
	"github.com/n1n-api/picturebook/internal/outline"
	"github.com/n1n-api/picturebook/internal/taskstate"
)

// Engine is the subset of *orchestrator.Engine the transport layer drives.
type Engine interface {
	GenerateImages(ctx context.Context, in orchestrator.GenerateImagesInput) (<-chan orchestrator.ProgressEvent, error)
	RetrySingle(ctx context.Context, taskID string, page model.Page, useReference bool, fullOutline, userTopic string) (string, error)
	RetryFailed(ctx context.Context, taskID string, pages []model.Page) <-chan orchestrator.ProgressEvent
	GetTaskState(taskID string) (taskstate.Snapshot, bool)
	CleanupTask(taskID string)
}

// Catalog is the subset of *catalog.Repository the transport layer drives:
// a record is created when a task starts, synced once the event stream of a
// generate or batch-retry call closes,
// and browsable/removable through the history routes below. Nil disables
// catalog persistence entirely (the engine itself has no durability
// requirement, per spec.md §3).
type Catalog interface {
	Create(ctx context.Context, id, title, taskID string, outline model.Outline) (*catalog.CatalogRecord, error)
	SyncFromSnapshot(ctx context.Context, taskID string, snap taskstate.Snapshot, thumbnail string) error
	Get(ctx context.Context, id string) (*catalog.CatalogRecord, error)
	List(ctx context.Context) ([]catalog.CatalogRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteByTaskID(ctx context.Context, taskID string) error
}

var _ Catalog = (*catalog.Repository)(nil)

// Handler holds the collaborators every route needs.
type Handler struct {
	engine  Engine
	outline outline.Client // nil disables POST /api/generate's topic->outline step
	catalog Catalog        // nil disables catalog sync
	logger  *slog.Logger
}

// New builds a Handler. outline and cat may be nil to disable the features
// that depend on them; logger nil defaults to slog.Default().
func New(engine Engine, outlineClient outline.Client, cat Catalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, outline: outlineClient, catalog: cat, logger: logger}
}

// Router builds the gorilla/mux router wiring every route named in
// SPEC_FULL.md §4.11.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/generate", h.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{task_id}/retry", h.handleRetry).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{task_id}", h.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{task_id}", h.handleCleanupTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/catalog", h.handleListCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/{id}", h.handleGetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/{id}", h.handleDeleteCatalog).Methods(http.MethodDelete)
	return r
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + jsonEscape(message) + `"}`))
}

// jsonEscape is a minimal escaper for the fixed-shape error body above;
// full payloads elsewhere in this package go through encoding/json.
func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
