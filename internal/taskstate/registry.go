// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package taskstate is the process-wide mapping from task-id to per-task
// state. It has no persistence: a restart loses every in-flight task,
// which is an explicit non-goal of the orchestration engine.
package taskstate

import (
	"sync"

	"github.com/n1n-api/picturebook/internal/model"
)

// TaskState is the per-task state mutated by the orchestration engine and
// by retry entry points. Zero value is not usable; construct via
// Registry.Create.
type TaskState struct {
	mu sync.Mutex

	TaskID      string
	Pages       []model.Page
	Generated   map[int]string // index -> stored filename
	Failed      map[int]string // index -> last error message
	CoverImage  []byte         // set once, never replaced
	FullOutline string
	UserImages  [][]byte
	UserTopic   string
}

// Snapshot is a point-in-time, safe-to-share copy of a TaskState used for
// catalog projection and API responses.
type Snapshot struct {
	TaskID      string
	Pages       []model.Page
	Generated   map[int]string
	Failed      map[int]string
	HasCover    bool
	FullOutline string
	UserTopic   string
}

// MarkGenerated records a successful page generation, moving the index out
// of Failed if it was there (the retry path).
func (t *TaskState) MarkGenerated(index int, filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Generated[index] = filename
	delete(t.Failed, index)
}

// MarkFailed records a failed page generation, as long as it hasn't already
// succeeded — a failure result racing behind a successful retry must never
// clobber it.
func (t *TaskState) MarkFailed(index int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.Generated[index]; ok {
		return
	}
	t.Failed[index] = message
}

// SetCoverImage sets the cover reference bytes exactly once. Subsequent
// calls are no-ops, preserving the single-writer invariant from the spec.
func (t *TaskState) SetCoverImage(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.CoverImage != nil {
		return
	}
	t.CoverImage = data
}

// Cover returns the current cover reference bytes, or nil if the cover
// hasn't succeeded yet.
func (t *TaskState) Cover() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.CoverImage
}

// Snapshot returns a consistent copy of the counters needed by callers that
// don't want to hold the task's lock (catalog sync, API responses).
func (t *TaskState) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	generated := make(map[int]string, len(t.Generated))
	for k, v := range t.Generated {
		generated[k] = v
	}
	failed := make(map[int]string, len(t.Failed))
	for k, v := range t.Failed {
		failed[k] = v
	}
	return Snapshot{
		TaskID:      t.TaskID,
		Pages:       t.Pages,
		Generated:   generated,
		Failed:      failed,
		HasCover:    t.CoverImage != nil,
		FullOutline: t.FullOutline,
		UserTopic:   t.UserTopic,
	}
}

// Registry is the process-wide task-id -> TaskState map. Safe for
// concurrent use; a single instance is shared by every task the
// orchestration engine runs.
type Registry struct {
	mu     sync.RWMutex
	states map[string]*TaskState
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*TaskState)}
}

// Create installs a new TaskState for taskID, overwriting any prior state
// under the same id (callers are expected to generate unique ids).
func (r *Registry) Create(taskID string, pages []model.Page, fullOutline string, userImages [][]byte, userTopic string) *TaskState {
	st := &TaskState{
		TaskID:      taskID,
		Pages:       pages,
		Generated:   make(map[int]string),
		Failed:      make(map[int]string),
		FullOutline: fullOutline,
		UserImages:  userImages,
		UserTopic:   userTopic,
	}
	r.mu.Lock()
	r.states[taskID] = st
	r.mu.Unlock()
	return st
}

// Get returns the TaskState for taskID, or nil if it doesn't exist.
func (r *Registry) Get(taskID string) *TaskState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[taskID]
}

// Delete removes the TaskState for taskID, if any.
func (r *Registry) Delete(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, taskID)
}
