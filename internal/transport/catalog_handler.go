// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/n1n-api/picturebook/internal/catalog"
)

// catalogRecordResponse is the wire shape of a history entry, per
// SPEC_FULL.md §4.9.
type catalogRecordResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	TaskID      string `json:"task_id"`
	FullOutline string `json:"full_outline"`
	Status      string `json:"status"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	PageCount   int    `json:"page_count"`
}

func toCatalogRecordResponse(rec *catalog.CatalogRecord) catalogRecordResponse {
	return catalogRecordResponse{
		ID:          rec.ID,
		Title:       rec.Title,
		TaskID:      rec.TaskID,
		FullOutline: rec.FullOutline,
		Status:      string(rec.Status),
		Thumbnail:   rec.Thumbnail,
		PageCount:   rec.PageCount,
	}
}

func (h *Handler) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "catalog is not configured")
		return
	}

	recs, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("catalog list failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "list failed")
		return
	}

	resp := make([]catalogRecordResponse, 0, len(recs))
	for i := range recs {
		resp = append(resp, toCatalogRecordResponse(&recs[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "catalog is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, "unknown catalog id")
			return
		}
		h.logger.Error("catalog get failed", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "get failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toCatalogRecordResponse(rec))
}

func (h *Handler) handleDeleteCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "catalog is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.logger.Error("catalog delete failed", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
