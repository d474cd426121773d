// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/n1n-api/picturebook/internal/model"
)

// openAICompatibleGenerator drives any OpenAI-compatible image generation
// endpoint (official OpenAI, or a compatible proxy reachable via BaseURL).
// It does not accept a reference image, per spec.md §4.1.
type openAICompatibleGenerator struct {
	client openai.Client
	cfg    model.ProviderConfig
}

func newOpenAICompatibleGenerator(cfg model.ProviderConfig, httpClient *http.Client) (Generator, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAICompatibleGenerator{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (g *openAICompatibleGenerator) GenerateImage(ctx context.Context, req GenerateRequest) ([]byte, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = g.cfg.Model
	}
	size := req.Size
	if size == "" {
		size = g.cfg.DefaultSize
	}
	quality := req.Quality
	if quality == "" {
		quality = string(g.cfg.Quality)
	}
	if quality == "" {
		quality = string(model.QualityStandard)
	}

	params := openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          openai.ImageModel(modelName),
		Size:           openai.ImageGenerateParamsSize(size),
		Quality:        openai.ImageGenerateParamsQuality(quality),
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	}

	resp, err := g.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, ErrEmptyImageData)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 image: %w", ErrProviderFailure, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, ErrEmptyImageData)
	}

	return data, nil
}
