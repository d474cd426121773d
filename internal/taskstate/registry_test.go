// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package taskstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1n-api/picturebook/internal/model"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	r := NewRegistry()
	pages := []model.Page{{Index: 1, Type: model.PageCover, Content: "cover"}}

	st := r.Create("task_abc", pages, "outline", nil, "topic")
	require.NotNil(t, st)
	assert.Same(t, st, r.Get("task_abc"))

	r.Delete("task_abc")
	assert.Nil(t, r.Get("task_abc"))
}

func TestTaskState_GeneratedFailedDisjoint(t *testing.T) {
	r := NewRegistry()
	st := r.Create("task_1", nil, "", nil, "")

	st.MarkFailed(2, "boom")
	st.MarkGenerated(2, "2.png")

	snap := st.Snapshot()
	assert.Equal(t, "2.png", snap.Generated[2])
	_, stillFailed := snap.Failed[2]
	assert.False(t, stillFailed, "generated index must be removed from failed")
}

func TestTaskState_MarkFailedDoesNotClobberSuccess(t *testing.T) {
	r := NewRegistry()
	st := r.Create("task_1", nil, "", nil, "")

	st.MarkGenerated(3, "3.png")
	st.MarkFailed(3, "late failure from an abandoned retry")

	snap := st.Snapshot()
	assert.Equal(t, "3.png", snap.Generated[3])
	assert.Empty(t, snap.Failed)
}

func TestTaskState_CoverImageSingleWriter(t *testing.T) {
	r := NewRegistry()
	st := r.Create("task_1", nil, "", nil, "")

	st.SetCoverImage([]byte("first"))
	st.SetCoverImage([]byte("second"))

	assert.Equal(t, []byte("first"), st.Cover())
}
