// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transport

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// taskSnapshotResponse is the wire shape of GET /api/tasks/{task_id}, per
// spec.md §6's "TaskState snapshot (for catalog synchronization)".
type taskSnapshotResponse struct {
	TaskID      string         `json:"task_id"`
	Generated   map[int]string `json:"generated"`
	Failed      map[int]string `json:"failed"`
	HasCover    bool           `json:"has_cover"`
	FullOutline string         `json:"full_outline"`
	UserTopic   string         `json:"user_topic"`
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]

	snap, ok := h.engine.GetTaskState(taskID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown task_id")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(taskSnapshotResponse{
		TaskID:      snap.TaskID,
		Generated:   snap.Generated,
		Failed:      snap.Failed,
		HasCover:    snap.HasCover,
		FullOutline: snap.FullOutline,
		UserTopic:   snap.UserTopic,
	})
}

func (h *Handler) handleCleanupTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	h.engine.CleanupTask(taskID)
	if h.catalog != nil {
		if err := h.catalog.DeleteByTaskID(r.Context(), taskID); err != nil {
			h.logger.Error("catalog delete by task failed", "error", err, "task_id", taskID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
