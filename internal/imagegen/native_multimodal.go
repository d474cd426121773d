// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/n1n-api/picturebook/internal/model"
)

// nativeMultimodalGenerator drives a native multimodal image model (Gemini
// image-preview family) through google.golang.org/genai. It accepts at
// most one reference image, per spec.md §4.1.
type nativeMultimodalGenerator struct {
	client *genai.Client
	cfg    model.ProviderConfig
}

func newNativeMultimodalGenerator(cfg model.ProviderConfig, httpClient *http.Client) (Generator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: "v1beta",
		}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: construct genai client: %w", ErrProviderFailure, err)
	}

	return &nativeMultimodalGenerator{client: client, cfg: cfg}, nil
}

func (g *nativeMultimodalGenerator) GenerateImage(ctx context.Context, req GenerateRequest) ([]byte, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = g.cfg.Model
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.ReferenceImage) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.ReferenceImage, "image/png"))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		ResponseModality: []string{"IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrProviderFailure, ErrEmptyImageData)
}
