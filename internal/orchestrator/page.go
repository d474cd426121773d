// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/n1n-api/picturebook/internal/imagegen"
	"github.com/n1n-api/picturebook/internal/imgutil"
	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/objectstore"
	"github.com/n1n-api/picturebook/internal/prompt"
)

const (
	originalContentType  = "image/png"
	thumbnailContentType = "image/jpeg"
	coverReferenceBudget = 200 * 1024
	thumbnailBudget      = 50 * 1024
)

// buildGenerateRequest assembles the provider-specific subset of
// imagegen.GenerateRequest, per spec.md §4.1.
func buildGenerateRequest(cfg model.ProviderConfig, promptText string, coverRef []byte, userRefs [][]byte) imagegen.GenerateRequest {
	req := imagegen.GenerateRequest{
		Prompt:      promptText,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	}

	switch cfg.Type {
	case model.ProviderNativeMultimodal:
		req.AspectRatio = cfg.DefaultAspectRatio
		req.ReferenceImage = coverRef
	case model.ProviderOpenAICompatible:
		req.Size = cfg.DefaultSize
		req.Quality = string(cfg.Quality)
	case model.ProviderImageAPI:
		req.AspectRatio = cfg.DefaultAspectRatio
		refs := make([][]byte, 0, len(userRefs)+1)
		refs = append(refs, userRefs...)
		if coverRef != nil {
			refs = append(refs, coverRef)
		}
		req.ReferenceImages = refs
	}

	return req
}

// uploadArtifact stores the original image and a compressed thumbnail under
// the bit-exact keys from spec.md §6. A failure here is not retried by the
// caller's generate-level retry loop, per spec.md §9(c).
func (e *Engine) uploadArtifact(ctx context.Context, taskID string, index int, data []byte) error {
	if _, err := e.store.Upload(ctx, objectstore.OriginalKey(taskID, index), data, originalContentType); err != nil {
		return err
	}

	thumb, err := imgutil.ThumbnailJPEG(data, thumbnailBudget)
	if err != nil {
		return fmt.Errorf("%w: build thumbnail for %s/%d: %w", objectstore.ErrStorageFailure, taskID, index, err)
	}
	if _, err := e.store.Upload(ctx, objectstore.ThumbnailKey(taskID, index), thumb, thumbnailContentType); err != nil {
		return err
	}
	return nil
}

// safeGenerateOne wraps generateOneWithRetry with a panic recovery so a
// single worker's crash never takes down the goroutine it runs on,
// per spec.md §7; a recovered panic is surfaced as an ordinary
// imagegen.ErrProviderFailure result, same as any other generation failure.
func (e *Engine) safeGenerateOne(ctx context.Context, gen imagegen.Generator, cfg model.ProviderConfig, page model.Page, coverRef []byte, userRefs [][]byte, fullOutline, userTopic, taskID string) (filename string, raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered panic in generation worker", "task_id", taskID, "index", page.Index, "panic", r)
			err = fmt.Errorf("%w: recovered panic: %v", imagegen.ErrProviderFailure, r)
		}
	}()
	return e.generateOneWithRetry(ctx, gen, cfg, page, coverRef, userRefs, fullOutline, userTopic, taskID)
}

// generateOneWithRetry renders the prompt once, then attempts generation up
// to autoRetryCount times with an exponential backoff between attempts
// (spec.md §4.3: 2^attempt seconds). It returns the stored filename and the
// raw image bytes (needed by the cover phase for reference compression) on
// success.
func (e *Engine) generateOneWithRetry(ctx context.Context, gen imagegen.Generator, cfg model.ProviderConfig, page model.Page, coverRef []byte, userRefs [][]byte, fullOutline, userTopic, taskID string) (filename string, raw []byte, err error) {
	promptText, perr := e.templater.Render(cfg.ShortPrompt, prompt.Data{
		PageContent: page.Content,
		PageType:    string(page.Type),
		FullOutline: fullOutline,
		UserTopic:   userTopic,
	})
	if perr != nil {
		return "", nil, fmt.Errorf("render prompt for page %d: %w", page.Index, perr)
	}

	req := buildGenerateRequest(cfg, promptText, coverRef, userRefs)

	rm, rmErr := e.metrics.NewRequestMetrics()
	if rmErr != nil {
		e.logger.Warn("build request metrics failed, falling back to noop", "error", rmErr)
		rm, _ = NoopMetrics{}.NewRequestMetrics()
	}
	rm.StartRequest()
	rm.SetRequestModel(cfg.Model)
	rm.SetBackend(cfg.Type)
	// Image generation never consumes or produces tokens; recorded as 0 for
	// gen-ai semantic-convention consistency across every request kind.
	defer rm.RecordTokenUsage(ctx, 0, 0)

	var lastErr error
	for attempt := 0; attempt < autoRetryCount; attempt++ {
		data, genErr := gen.GenerateImage(ctx, req)
		if genErr == nil && len(data) > 0 {
			name := fmt.Sprintf("%d.png", page.Index)
			if uploadErr := e.uploadArtifact(ctx, taskID, page.Index, data); uploadErr != nil {
				e.metrics.RecordPageGeneration(ctx, phaseFor(page), cfg.Model, false, attempt+1)
				rm.RecordRequestCompletion(ctx, false)
				return "", nil, uploadErr
			}
			e.metrics.RecordPageGeneration(ctx, phaseFor(page), cfg.Model, true, attempt+1)
			rm.RecordImageGeneration(ctx, 1, cfg.Model, cfg.DefaultSize)
			rm.RecordRequestCompletion(ctx, true)
			return name, data, nil
		}
		if genErr == nil {
			genErr = fmt.Errorf("%w: %w", imagegen.ErrProviderFailure, imagegen.ErrEmptyImageData)
		}
		lastErr = genErr

		if attempt < autoRetryCount-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				rm.RecordRequestCompletion(ctx, false)
				return "", nil, ctx.Err()
			}
		}
	}

	e.metrics.RecordPageGeneration(ctx, phaseFor(page), cfg.Model, false, autoRetryCount)
	rm.RecordRequestCompletion(ctx, false)
	return "", nil, lastErr
}

func phaseFor(page model.Page) Phase {
	if page.IsCover() {
		return PhaseCover
	}
	return PhaseContent
}
