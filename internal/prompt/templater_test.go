// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplater_RenderFull(t *testing.T) {
	tpl, err := NewTemplater()
	require.NoError(t, err)

	out, err := tpl.Render(false, Data{
		PageContent: "a dragon learns to fly",
		PageType:    "content",
		FullOutline: "1. cover\n2. the dragon\n3. ending",
		UserTopic:   "a brave dragon",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "a dragon learns to fly")
	assert.Contains(t, out, "a brave dragon")
	assert.Contains(t, out, "1. cover")
}

func TestTemplater_RenderShort(t *testing.T) {
	tpl, err := NewTemplater()
	require.NoError(t, err)

	out, err := tpl.Render(true, Data{PageContent: "the dragon", PageType: "cover"})
	require.NoError(t, err)
	assert.Contains(t, out, "the dragon")
	assert.NotContains(t, out, "Full outline")
}

func TestTemplater_MissingTopicDefaultsToNotProvided(t *testing.T) {
	tpl, err := NewTemplater()
	require.NoError(t, err)

	out, err := tpl.Render(false, Data{PageContent: "x", PageType: "content", FullOutline: "y"})
	require.NoError(t, err)
	assert.Contains(t, out, "not provided")
}
