// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1n-api/picturebook/internal/model"
)

func TestNewGenerator_UnknownType(t *testing.T) {
	_, err := NewGenerator(model.ProviderConfig{Type: "not_a_real_type"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProviderType)
}

func TestNewGenerator_OpenAICompatible(t *testing.T) {
	gen, err := NewGenerator(model.ProviderConfig{
		Type:   model.ProviderOpenAICompatible,
		APIKey: "sk-test",
		Model:  "dall-e-3",
	})
	require.NoError(t, err)
	assert.IsType(t, &openAICompatibleGenerator{}, gen)
}

func TestNewGenerator_ImageAPI(t *testing.T) {
	gen, err := NewGenerator(model.ProviderConfig{
		Type:    model.ProviderImageAPI,
		APIKey:  "key",
		BaseURL: "https://example.test",
	})
	require.NoError(t, err)
	assert.IsType(t, &imageAPIGenerator{}, gen)
}
