// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1n-api/picturebook/internal/imagegen"
	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/prompt"
	"github.com/n1n-api/picturebook/internal/taskstate"
)

func drain(ch <-chan ProgressEvent, timeout time.Duration) []ProgressEvent {
	var events []ProgressEvent
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			return events
		}
	}
}

// samplePages builds n pages using spec.md §3's 1-based indexing: the cover
// is index 1, content pages run 2..n.
func samplePages(n int) []model.Page {
	pages := make([]model.Page, 0, n)
	pages = append(pages, model.Page{Index: 1, Type: model.PageCover, Content: "cover marker 1"})
	for i := 2; i <= n; i++ {
		pages = append(pages, model.Page{Index: i, Type: model.PageContent, Content: "page marker " + string(rune('a'+i-1))})
	}
	return pages
}

func newTestEngine(t *testing.T, cfg model.ProviderConfig, gen *fakeGenerator, store *fakeStore) *Engine {
	t.Helper()
	tmpl, err := prompt.NewTemplater()
	require.NoError(t, err)
	e := New(fixedConfigSource{cfg: cfg}, store, tmpl, taskstate.NewRegistry(), nil, nil)
	e.newGenerator = func(model.ProviderConfig) (imagegen.Generator, error) { return gen, nil }
	return e
}

func TestEngine_GenerateImages_AllSucceed(t *testing.T) {
	gen := newFakeGenerator()
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	ch, err := e.GenerateImages(context.Background(), GenerateImagesInput{
		TaskID: "task_1",
		Pages:  samplePages(4),
	})
	require.NoError(t, err)

	events := drain(ch, 5*time.Second)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, EventFinish, last.Kind)
	finish := last.Data.(FinishData)
	assert.True(t, finish.Success)
	assert.Equal(t, 4, finish.Total)
	assert.Equal(t, 4, finish.Completed)
	assert.Equal(t, 0, finish.Failed)
	assert.Len(t, finish.Images, 4)

	snap, ok := e.GetTaskState("task_1")
	require.True(t, ok)
	assert.Len(t, snap.Generated, 4)
	assert.Empty(t, snap.Failed)
	assert.True(t, snap.HasCover)
}

func TestEngine_GenerateImages_PartialFailure(t *testing.T) {
	gen := newFakeGenerator()
	gen.failAlways["page marker b"] = true
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	ch, err := e.GenerateImages(context.Background(), GenerateImagesInput{
		TaskID: "task_2",
		Pages:  samplePages(3),
	})
	require.NoError(t, err)

	events := drain(ch, 5*time.Second)
	last := events[len(events)-1]
	require.Equal(t, EventFinish, last.Kind)
	finish := last.Data.(FinishData)
	assert.False(t, finish.Success)
	assert.Equal(t, 1, finish.Failed)
	assert.Equal(t, 2, finish.Completed)

	snap, ok := e.GetTaskState("task_2")
	require.True(t, ok)
	assert.Len(t, snap.Failed, 1)
}

func TestEngine_GenerateImages_RetriesThenSucceeds(t *testing.T) {
	gen := newFakeGenerator()
	gen.failNTimes["page marker b"] = 1 // fails once, succeeds on 2nd (of 3 allowed) attempt
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	ch, err := e.GenerateImages(context.Background(), GenerateImagesInput{
		TaskID: "task_3",
		Pages:  samplePages(2),
	})
	require.NoError(t, err)

	events := drain(ch, 5*time.Second)
	last := events[len(events)-1]
	finish := last.Data.(FinishData)
	assert.True(t, finish.Success)
	assert.Equal(t, 2, finish.Completed)
}

func TestEngine_GenerateImages_EmptyPagesIsInputFailure(t *testing.T) {
	gen := newFakeGenerator()
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal}
	e := newTestEngine(t, cfg, gen, store)

	_, err := e.GenerateImages(context.Background(), GenerateImagesInput{Pages: nil})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputFailure)
}

func TestEngine_GenerateImages_NoProviderIsConfigFailure(t *testing.T) {
	gen := newFakeGenerator()
	store := newFakeStore()
	tmpl, err := prompt.NewTemplater()
	require.NoError(t, err)
	e := New(emptyConfigSource{}, store, tmpl, taskstate.NewRegistry(), nil, nil)
	e.newGenerator = func(model.ProviderConfig) (imagegen.Generator, error) { return gen, nil }

	_, err = e.GenerateImages(context.Background(), GenerateImagesInput{Pages: samplePages(2)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigFailure)
}

func TestEngine_RetrySingle_DoesNotClobberOnFailure(t *testing.T) {
	gen := newFakeGenerator()
	gen.failAlways["retry marker"] = true
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	page := model.Page{Index: 5, Type: model.PageContent, Content: "retry marker"}
	st := e.registry.Create("task_clobber", []model.Page{page}, "", nil, "")
	st.MarkGenerated(5, "5.png")

	_, err := e.RetrySingle(context.Background(), "task_clobber", page, false, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, imagegen.ErrProviderFailure)

	snap, ok := e.GetTaskState("task_clobber")
	require.True(t, ok)
	assert.Equal(t, "5.png", snap.Generated[5])
	assert.Empty(t, snap.Failed)
}

func TestEngine_RetryFailed_ReportsPerPageOutcome(t *testing.T) {
	gen := newFakeGenerator()
	gen.failAlways["bad page"] = true
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	pages := []model.Page{
		{Index: 1, Type: model.PageContent, Content: "good page"},
		{Index: 2, Type: model.PageContent, Content: "bad page"},
	}
	ch := e.RetryFailed(context.Background(), "task_4", pages)
	events := drain(ch, 5*time.Second)

	last := events[len(events)-1]
	require.Equal(t, EventRetryFinish, last.Kind)
	rf := last.Data.(RetryFinishData)
	assert.Equal(t, 2, rf.Total)
	assert.Equal(t, 1, rf.Completed)
	assert.Equal(t, 1, rf.Failed)
}

func TestEngine_CleanupTask_RemovesState(t *testing.T) {
	gen := newFakeGenerator()
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	ch, err := e.GenerateImages(context.Background(), GenerateImagesInput{TaskID: "task_5", Pages: samplePages(1)})
	require.NoError(t, err)
	drain(ch, 5*time.Second)

	_, ok := e.GetTaskState("task_5")
	require.True(t, ok)

	e.CleanupTask("task_5")
	_, ok = e.GetTaskState("task_5")
	assert.False(t, ok)
}

// TestEngine_GenerateImages_SerialContentCompletesInOrder covers E5: with
// HighConcurrency unset, content pages run one at a time, so page 2 must
// finish before page 3 starts.
func TestEngine_GenerateImages_SerialContentCompletesInOrder(t *testing.T) {
	gen := newFakeGenerator()
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	ch, err := e.GenerateImages(context.Background(), GenerateImagesInput{
		TaskID: "task_order_serial",
		Pages:  samplePages(4), // cover(1), content 2,3,4
	})
	require.NoError(t, err)

	events := drain(ch, 5*time.Second)

	var contentCompleteOrder []int
	for _, ev := range events {
		if ev.Kind != EventComplete {
			continue
		}
		cd := ev.Data.(CompleteData)
		if cd.Phase == PhaseContent {
			contentCompleteOrder = append(contentCompleteOrder, cd.Index)
		}
	}

	assert.Equal(t, []int{2, 3, 4}, contentCompleteOrder, "serial content pages must complete in index order")
}

// TestEngine_GenerateImages_RetryBackoffElapsesAcrossTwoAttempts covers E6:
// two transient failures force two exponential backoffs (2^0 + 2^1 seconds)
// before the third attempt succeeds.
func TestEngine_GenerateImages_RetryBackoffElapsesAcrossTwoAttempts(t *testing.T) {
	gen := newFakeGenerator()
	gen.failNTimes["retry timing marker"] = 2
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	page := model.Page{Index: 7, Type: model.PageContent, Content: "retry timing marker"}

	start := time.Now()
	_, _, err := e.generateOneWithRetry(context.Background(), gen, cfg, page, nil, nil, "", "", "task_timing")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 3*time.Second, "backoffs of 1s then 2s must elapse before the third attempt")
}

// TestEngine_GenerateImages_ProgressPrecedesCompleteForEachPage covers
// invariant 3: every page's progress("generating") event is observed before
// its complete event.
func TestEngine_GenerateImages_ProgressPrecedesCompleteForEachPage(t *testing.T) {
	gen := newFakeGenerator()
	store := newFakeStore()
	cfg := model.ProviderConfig{Type: model.ProviderNativeMultimodal, Model: "test-model"}
	e := newTestEngine(t, cfg, gen, store)

	ch, err := e.GenerateImages(context.Background(), GenerateImagesInput{
		TaskID: "task_order_invariant",
		Pages:  samplePages(5),
	})
	require.NoError(t, err)

	events := drain(ch, 5*time.Second)

	progressPos := map[int]int{}
	completePos := map[int]int{}
	for i, ev := range events {
		switch ev.Kind {
		case EventProgress:
			pd := ev.Data.(ProgressData)
			if pd.Index != nil {
				if _, seen := progressPos[*pd.Index]; !seen {
					progressPos[*pd.Index] = i
				}
			}
		case EventComplete:
			cd := ev.Data.(CompleteData)
			if _, seen := completePos[cd.Index]; !seen {
				completePos[cd.Index] = i
			}
		}
	}

	require.NotEmpty(t, completePos)
	for idx, completeIdx := range completePos {
		progressIdx, ok := progressPos[idx]
		require.True(t, ok, "page %d completed with no preceding progress event", idx)
		assert.Less(t, progressIdx, completeIdx, "page %d: progress event must precede its complete event", idx)
	}
}
