// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/orchestrator"
	"github.com/n1n-api/picturebook/internal/sse"
)

// generateRequest is the body of POST /api/generate: a topic plus optional
// base64-encoded reference images, matching start_generation(topic, refs?)
// from spec.md §6.
type generateRequest struct {
	Topic string   `json:"topic"`
	Refs  []string `json:"refs"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeJSONError(w, http.StatusBadRequest, "topic must not be empty")
		return
	}
	if h.outline == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "outline generation is not configured")
		return
	}

	refs := make([][]byte, 0, len(req.Refs))
	for _, encoded := range req.Refs {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "refs must be base64-encoded images")
			return
		}
		refs = append(refs, raw)
	}

	ctx := r.Context()
	book, err := h.outline.GenerateOutline(ctx, req.Topic, refs)
	if err != nil {
		h.logger.Error("outline generation failed", "error", err, "topic", req.Topic)
		writeJSONError(w, http.StatusBadGateway, "outline generation failed")
		return
	}

	taskID := "task_" + uuid.NewString()
	events, err := h.engine.GenerateImages(ctx, orchestrator.GenerateImagesInput{
		TaskID:      taskID,
		Pages:       book.Pages,
		FullOutline: book.FullOutline,
		UserImages:  refs,
		UserTopic:   req.Topic,
	})
	if err != nil {
		h.logger.Error("generate_images rejected request", "error", err, "topic", req.Topic)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.createCatalogEntry(ctx, taskID, req.Topic, book)

	w.Header().Set("X-Task-Id", taskID)
	sse.NewEmitter(w).Stream(ctx, events)
	h.syncCatalog(r.Context(), taskID)
}

// createCatalogEntry persists the history record for a task as soon as it
// starts, so it shows up in GET /api/catalog even if the client disconnects
// before the stream finishes. A failure here doesn't fail the request —
// catalog persistence is ambient, not part of the generation contract.
func (h *Handler) createCatalogEntry(ctx context.Context, taskID, title string, book model.Outline) {
	if h.catalog == nil {
		return
	}
	if _, err := h.catalog.Create(ctx, uuid.NewString(), title, taskID, book); err != nil {
		h.logger.Error("catalog create failed", "error", err, "task_id", taskID)
	}
}

// syncCatalog projects a task's current TaskState onto its catalog record,
// if catalog persistence is configured. Called after the stream for a
// task's generate or retry-batch call closes, whatever its outcome — the
// snapshot is read straight from the registry, not derived from the event
// the client happened to see last.
func (h *Handler) syncCatalog(ctx context.Context, taskID string) {
	if h.catalog == nil {
		return
	}
	snap, ok := h.engine.GetTaskState(taskID)
	if !ok {
		return
	}
	if err := h.catalog.SyncFromSnapshot(ctx, taskID, snap, ""); err != nil {
		h.logger.Error("catalog sync failed", "error", err, "task_id", taskID)
	}
}
