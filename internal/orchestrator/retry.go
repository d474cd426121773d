// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/objectstore"
)

// RetrySingle regenerates exactly one page outside of any running pipeline.
// On failure, TaskState is left unchanged (invariant: a failed retry never
// clobbers prior state); on success, the page is marked generated,
// superseding any prior failure recorded for the same index.
func (e *Engine) RetrySingle(ctx context.Context, taskID string, page model.Page, useReference bool, fullOutline, userTopic string) (string, error) {
	st := e.registry.Get(taskID)

	var coverRef []byte
	var userRefs [][]byte
	if st != nil {
		if useReference {
			coverRef = st.Cover()
		}
		userRefs = st.UserImages
		if fullOutline == "" {
			fullOutline = st.FullOutline
		}
		if userTopic == "" {
			userTopic = st.UserTopic
		}
	}

	cfg, gen, err := e.currentGenerator()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfigFailure, err)
	}

	filename, _, err := e.safeGenerateOne(ctx, gen, cfg, page, coverRef, userRefs, fullOutline, userTopic, taskID)
	if err != nil {
		return "", err
	}

	if st != nil {
		st.MarkGenerated(page.Index, filename)
	}
	return e.store.URLFor(objectstore.OriginalKey(taskID, page.Index)), nil
}

// Regenerate is RetrySingle under a name matching spec.md's operation list;
// the two share every semantic (same retry budget, same reference rules).
func (e *Engine) Regenerate(ctx context.Context, taskID string, page model.Page, useReference bool, fullOutline, userTopic string) (string, error) {
	return e.RetrySingle(ctx, taskID, page, useReference, fullOutline, userTopic)
}

// RetryFailed regenerates a batch of pages concurrently (bounded the same
// way the content phase is) and streams retry_start/complete|error/
// retry_finish events. It does not recompute which pages failed; the caller
// supplies the list, typically read from a prior GetTaskState snapshot.
func (e *Engine) RetryFailed(ctx context.Context, taskID string, pages []model.Page) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 64)
	go e.runRetryFailed(ctx, events, taskID, pages)
	return events
}

func (e *Engine) runRetryFailed(ctx context.Context, events chan ProgressEvent, taskID string, pages []model.Page) {
	defer close(events)

	total := len(pages)
	sendEvent(ctx, events, ProgressEvent{Kind: EventRetryStart, Data: RetryStartData{
		Total: total, Message: fmt.Sprintf("retrying %d failed pages", total),
	}})

	st := e.registry.Get(taskID)
	var coverRef []byte
	var userRefs [][]byte
	var fullOutline, userTopic string
	if st != nil {
		coverRef = st.Cover()
		userRefs = st.UserImages
		fullOutline = st.FullOutline
		userTopic = st.UserTopic
	}

	cfg, gen, err := e.currentGenerator()
	if err != nil {
		sendEvent(ctx, events, ProgressEvent{Kind: EventRetryFinish, Data: RetryFinishData{
			Success: false, Total: total, Failed: total,
		}})
		return
	}

	var mu sync.Mutex
	completed, failed := 0, 0

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)
	for _, p := range pages {
		if ctx.Err() != nil {
			break
		}
		page := p
		g.Go(func() error {
			filename, _, genErr := e.safeGenerateOne(ctx, gen, cfg, page, coverRef, userRefs, fullOutline, userTopic, taskID)
			if genErr != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				sendEvent(ctx, events, ProgressEvent{Kind: EventError, Data: ErrorData{
					Index: page.Index, Status: StatusError, Message: genErr.Error(), Retryable: true, Phase: phaseFor(page),
				}})
				return nil
			}

			if st != nil {
				st.MarkGenerated(page.Index, filename)
			}
			mu.Lock()
			completed++
			mu.Unlock()
			sendEvent(ctx, events, ProgressEvent{Kind: EventComplete, Data: CompleteData{
				Index: page.Index, Status: StatusDone, ImageURL: e.store.URLFor(objectstore.OriginalKey(taskID, page.Index)), Phase: phaseFor(page),
			}})
			return nil
		})
	}
	_ = g.Wait()

	sendEvent(ctx, events, ProgressEvent{Kind: EventRetryFinish, Data: RetryFinishData{
		Success: failed == 0, Total: total, Completed: completed, Failed: failed,
	}})
}
