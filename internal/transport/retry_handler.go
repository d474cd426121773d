// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transport

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/sse"
)

// pageDTO is the wire shape of a page in a retry request body.
type pageDTO struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (p pageDTO) toModel() model.Page {
	pageType := model.PageType(p.Type)
	if pageType == "" {
		pageType = model.PageContent
	}
	return model.Page{Index: p.Index, Type: pageType, Content: p.Content}
}

// retryRequest accepts either a single page (retry_single/regenerate) or a
// batch (retry_failed), per spec.md §6. Exactly one of Pages or the
// top-level page fields is populated.
type retryRequest struct {
	pageDTO
	Pages        []pageDTO `json:"pages"`
	UseReference *bool     `json:"use_reference"`
	FullOutline  string    `json:"full_outline"`
	UserTopic    string    `json:"user_topic"`
}

// singleRetryResponse mirrors spec.md §4.5's {ok, image_url} | {err, message}.
type singleRetryResponse struct {
	OK       bool   `json:"ok"`
	ImageURL string `json:"image_url,omitempty"`
	Err      bool   `json:"err,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]

	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Pages) > 0 {
		h.retryBatch(w, r, taskID, req.Pages)
		return
	}
	h.retrySingle(w, r, taskID, req)
}

func (h *Handler) retrySingle(w http.ResponseWriter, r *http.Request, taskID string, req retryRequest) {
	useReference := true
	if req.UseReference != nil {
		useReference = *req.UseReference
	}

	imageURL, err := h.engine.RetrySingle(r.Context(), taskID, req.pageDTO.toModel(), useReference, req.FullOutline, req.UserTopic)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusOK) // a failed retry is a normal response, per spec.md §4.5
		_ = json.NewEncoder(w).Encode(singleRetryResponse{Err: true, Message: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(singleRetryResponse{OK: true, ImageURL: imageURL})
}

func (h *Handler) retryBatch(w http.ResponseWriter, r *http.Request, taskID string, dtos []pageDTO) {
	pages := make([]model.Page, 0, len(dtos))
	for _, d := range dtos {
		pages = append(pages, d.toModel())
	}

	events := h.engine.RetryFailed(r.Context(), taskID, pages)
	sse.NewEmitter(w).Stream(r.Context(), events)
	h.syncCatalog(r.Context(), taskID)
}
