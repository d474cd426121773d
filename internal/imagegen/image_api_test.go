// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1n-api/picturebook/internal/model"
)

func TestImageAPIGenerator_GenerateImage_Success(t *testing.T) {
	want := []byte("fake-png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(want) + `"}]}`))
	}))
	defer srv.Close()

	gen := newImageAPIGenerator(model.ProviderConfig{
		Type:    model.ProviderImageAPI,
		APIKey:  "secret",
		BaseURL: srv.URL,
	}, srv.Client())

	got, err := gen.GenerateImage(context.Background(), GenerateRequest{Prompt: "a dragon"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImageAPIGenerator_GenerateImage_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	gen := newImageAPIGenerator(model.ProviderConfig{BaseURL: srv.URL}, srv.Client())

	_, err := gen.GenerateImage(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.ErrorIs(t, err, ErrEmptyImageData)
}

func TestImageAPIGenerator_GenerateImage_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	gen := newImageAPIGenerator(model.ProviderConfig{BaseURL: srv.URL}, srv.Client())

	_, err := gen.GenerateImage(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailure)
}

func TestImageAPIGenerator_ReferenceImagesIncludeUserAndCover(t *testing.T) {
	var sawRefs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			ReferenceImages []string `json:"reference_images"`
		}
		_ = json.Unmarshal(body, &payload)
		sawRefs = payload.ReferenceImages
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString([]byte("x")) + `"}]}`))
	}))
	defer srv.Close()

	gen := newImageAPIGenerator(model.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := gen.GenerateImage(context.Background(), GenerateRequest{
		Prompt:          "x",
		ReferenceImages: [][]byte{[]byte("user-ref"), []byte("cover-ref")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		base64.StdEncoding.EncodeToString([]byte("user-ref")),
		base64.StdEncoding.EncodeToString([]byte("cover-ref")),
	}, sawRefs)
}
