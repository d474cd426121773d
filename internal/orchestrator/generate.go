// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/n1n-api/picturebook/internal/imagegen"
	"github.com/n1n-api/picturebook/internal/imgutil"
	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/objectstore"
	"github.com/n1n-api/picturebook/internal/taskstate"
)

// userImageBudget bounds a caller-supplied reference image before it's
// stored in TaskState, per spec.md invariant 4 (post-compression ≤200KB).
const userImageBudget = 200 * 1024

// GenerateImagesInput is the parameter set for starting a new task.
type GenerateImagesInput struct {
	TaskID      string // optional; generated if empty
	Pages       []model.Page
	FullOutline string
	UserImages  [][]byte
	UserTopic   string
}

// GenerateImages validates the request, creates a TaskState, and starts the
// cover-then-content pipeline in a background goroutine, returning a channel
// of ProgressEvent that is closed after the single terminal EventFinish (or
// silently, with none, if the caller's context is canceled first).
func (e *Engine) GenerateImages(ctx context.Context, in GenerateImagesInput) (<-chan ProgressEvent, error) {
	if len(in.Pages) == 0 {
		return nil, fmt.Errorf("%w: pages must not be empty", ErrInputFailure)
	}

	taskID := in.TaskID
	if taskID == "" {
		taskID = "task_" + uuid.NewString()
	}

	providerCfg, gen, err := e.currentGenerator()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFailure, err)
	}

	compressedUserImages := make([][]byte, 0, len(in.UserImages))
	for i, img := range in.UserImages {
		c, cErr := imgutil.CompressToBudget(img, userImageBudget)
		if cErr != nil {
			return nil, fmt.Errorf("%w: compress user image %d: %w", ErrInputFailure, i, cErr)
		}
		compressedUserImages = append(compressedUserImages, c)
	}

	st := e.registry.Create(taskID, in.Pages, in.FullOutline, compressedUserImages, in.UserTopic)

	events := make(chan ProgressEvent, 64)
	go e.runPipeline(ctx, events, st, providerCfg, gen)
	return events, nil
}

func partitionPages(pages []model.Page) (cover *model.Page, content []model.Page) {
	for i := range pages {
		if pages[i].Type == model.PageCover && cover == nil {
			p := pages[i]
			cover = &p
			continue
		}
		content = append(content, pages[i])
	}
	if cover == nil && len(pages) > 0 {
		p := pages[0]
		cover = &p
		content = pages[1:]
	}
	return cover, content
}

func (e *Engine) runPipeline(ctx context.Context, events chan ProgressEvent, st *taskstate.TaskState, cfg model.ProviderConfig, gen imagegen.Generator) {
	defer close(events)

	total := len(st.Pages)
	cover, content := partitionPages(st.Pages)

	if cover != nil {
		e.runCover(ctx, events, st, *cover, gen, cfg, st.UserImages, st.FullOutline, st.UserTopic, total)
	}

	if len(content) > 0 {
		coverRef := st.Cover()
		if cfg.HighConcurrency {
			e.runContentParallel(ctx, events, st, content, gen, cfg, coverRef, st.UserImages, st.FullOutline, st.UserTopic, total)
		} else {
			e.runContentSerial(ctx, events, st, content, gen, cfg, coverRef, st.UserImages, st.FullOutline, st.UserTopic, total)
		}
	}

	e.emitFinish(ctx, events, st, total)
}

func (e *Engine) runCover(ctx context.Context, events chan ProgressEvent, st *taskstate.TaskState, page model.Page, gen imagegen.Generator, cfg model.ProviderConfig, userRefs [][]byte, fullOutline, userTopic string, total int) {
	idx, one := page.Index, 1
	sendEvent(ctx, events, ProgressEvent{Kind: EventProgress, Data: ProgressData{
		Index: &idx, Status: StatusGenerating, Current: &one, Total: intPtr(total), Phase: PhaseCover, Message: "generating cover",
	}})

	filename, raw, err := e.safeGenerateOne(ctx, gen, cfg, page, nil, userRefs, fullOutline, userTopic, st.TaskID)
	if err != nil {
		st.MarkFailed(page.Index, err.Error())
		sendEvent(ctx, events, ProgressEvent{Kind: EventError, Data: ErrorData{
			Index: page.Index, Status: StatusError, Message: err.Error(), Retryable: true, Phase: PhaseCover,
		}})
		return
	}

	st.MarkGenerated(page.Index, filename)
	if compressed, cErr := imgutil.CompressToBudget(raw, coverReferenceBudget); cErr == nil {
		st.SetCoverImage(compressed)
	} else {
		e.logger.Warn("compress cover reference failed", "task_id", st.TaskID, "error", cErr)
	}

	sendEvent(ctx, events, ProgressEvent{Kind: EventComplete, Data: CompleteData{
		Index: page.Index, Status: StatusDone, ImageURL: e.store.URLFor(objectstore.OriginalKey(st.TaskID, page.Index)), Phase: PhaseCover,
	}})
}

// processContentPage generates one content page and reports its outcome.
// It recovers from a panic inside the generator call chain and treats it
// as a ProviderFailure for the page, per spec.md §7 — a worker's panic
// must never cross the goroutine boundary and take the whole task down.
func (e *Engine) processContentPage(ctx context.Context, events chan ProgressEvent, st *taskstate.TaskState, page model.Page, gen imagegen.Generator, cfg model.ProviderConfig, coverRef []byte, userRefs [][]byte, fullOutline, userTopic string) {
	filename, _, err := e.safeGenerateOne(ctx, gen, cfg, page, coverRef, userRefs, fullOutline, userTopic, st.TaskID)
	if err != nil {
		st.MarkFailed(page.Index, err.Error())
		sendEvent(ctx, events, ProgressEvent{Kind: EventError, Data: ErrorData{
			Index: page.Index, Status: StatusError, Message: err.Error(), Retryable: true, Phase: PhaseContent,
		}})
		return
	}
	st.MarkGenerated(page.Index, filename)
	sendEvent(ctx, events, ProgressEvent{Kind: EventComplete, Data: CompleteData{
		Index: page.Index, Status: StatusDone, ImageURL: e.store.URLFor(objectstore.OriginalKey(st.TaskID, page.Index)), Phase: PhaseContent,
	}})
}

func (e *Engine) runContentParallel(ctx context.Context, events chan ProgressEvent, st *taskstate.TaskState, pages []model.Page, gen imagegen.Generator, cfg model.ProviderConfig, coverRef []byte, userRefs [][]byte, fullOutline, userTopic string, total int) {
	sendEvent(ctx, events, ProgressEvent{Kind: EventProgress, Data: ProgressData{
		Status: StatusBatchStart, Phase: PhaseContent, Total: intPtr(total),
		Message: fmt.Sprintf("starting %d content pages in parallel", len(pages)),
	}})
	for _, p := range pages {
		idx := p.Index
		sendEvent(ctx, events, ProgressEvent{Kind: EventProgress, Data: ProgressData{
			Index: &idx, Status: StatusGenerating, Phase: PhaseContent, Total: intPtr(total),
		}})
	}

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)
	for _, p := range pages {
		if ctx.Err() != nil {
			break
		}
		page := p
		g.Go(func() error {
			e.processContentPage(ctx, events, st, page, gen, cfg, coverRef, userRefs, fullOutline, userTopic)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) runContentSerial(ctx context.Context, events chan ProgressEvent, st *taskstate.TaskState, pages []model.Page, gen imagegen.Generator, cfg model.ProviderConfig, coverRef []byte, userRefs [][]byte, fullOutline, userTopic string, total int) {
	sendEvent(ctx, events, ProgressEvent{Kind: EventProgress, Data: ProgressData{
		Status: StatusBatchStart, Phase: PhaseContent, Total: intPtr(total),
		Message: fmt.Sprintf("starting %d content pages serially", len(pages)),
	}})
	for _, p := range pages {
		if ctx.Err() != nil {
			return
		}
		idx := p.Index
		sendEvent(ctx, events, ProgressEvent{Kind: EventProgress, Data: ProgressData{
			Index: &idx, Status: StatusGenerating, Phase: PhaseContent, Total: intPtr(total),
		}})
		e.processContentPage(ctx, events, st, p, gen, cfg, coverRef, userRefs, fullOutline, userTopic)
	}
}

func (e *Engine) emitFinish(ctx context.Context, events chan ProgressEvent, st *taskstate.TaskState, total int) {
	snap := st.Snapshot()

	failedIndices := make([]int, 0, len(snap.Failed))
	for idx := range snap.Failed {
		failedIndices = append(failedIndices, idx)
	}
	sort.Ints(failedIndices)

	genIndices := make([]int, 0, len(snap.Generated))
	for idx := range snap.Generated {
		genIndices = append(genIndices, idx)
	}
	sort.Ints(genIndices)
	images := make([]string, 0, len(genIndices))
	for _, idx := range genIndices {
		images = append(images, snap.Generated[idx])
	}

	success := len(snap.Failed) == 0
	e.metrics.RecordTaskCompletion(ctx, success, total, len(snap.Generated), len(snap.Failed))

	sendEvent(ctx, events, ProgressEvent{Kind: EventFinish, Data: FinishData{
		Success:       success,
		TaskID:        st.TaskID,
		Images:        images,
		Total:         total,
		Completed:     len(snap.Generated),
		Failed:        len(snap.Failed),
		FailedIndices: failedIndices,
	}})
}
