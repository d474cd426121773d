// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/n1n-api/picturebook/internal/model"
)

// imageAPIGenerator drives a generic, documented-but-not-SDK-backed image
// generation HTTP API. Its response shape varies by provider, so the body
// is built and inspected with gjson/sjson rather than a fixed struct.
// Accepts a list of reference images, user references first, per
// spec.md §4.1.
type imageAPIGenerator struct {
	client  *http.Client
	cfg     model.ProviderConfig
	baseURL string
}

func newImageAPIGenerator(cfg model.ProviderConfig, httpClient *http.Client) Generator {
	return &imageAPIGenerator{
		client:  httpClient,
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// b64ImagePaths is the set of gjson paths this generator checks, in order,
// for a base64-encoded image in the response body. Providers in this
// category don't share one schema, so we probe the common shapes.
var b64ImagePaths = []string{
	"data.0.b64_json",
	"images.0.b64_json",
	"images.0",
	"image",
	"output.0",
}

func (g *imageAPIGenerator) GenerateImage(ctx context.Context, req GenerateRequest) ([]byte, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = g.cfg.Model
	}
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = g.cfg.DefaultAspectRatio
	}

	body := `{}`
	var err error
	body, err = sjson.Set(body, "model", modelName)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	body, _ = sjson.Set(body, "prompt", req.Prompt)
	body, _ = sjson.Set(body, "aspect_ratio", aspectRatio)
	body, _ = sjson.Set(body, "temperature", req.Temperature)

	if len(req.ReferenceImages) > 0 {
		refs := make([]string, len(req.ReferenceImages))
		for i, img := range req.ReferenceImages {
			refs[i] = base64.StdEncoding.EncodeToString(img)
		}
		body, _ = sjson.Set(body, "reference_images", refs)
	}

	url := g.baseURL + "/v1/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrProviderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailure, resp.StatusCode, truncate(string(respBody), 300))
	}

	parsed := gjson.ParseBytes(respBody)
	for _, path := range b64ImagePaths {
		v := parsed.Get(path)
		if v.Exists() && v.String() != "" {
			data, err := base64.StdEncoding.DecodeString(v.String())
			if err != nil {
				continue
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrProviderFailure, ErrEmptyImageData)
}

// Health checks provider connectivity via GET {base_url}/v1/models, per
// spec.md §6.
func (g *imageAPIGenerator) Health(ctx context.Context) error {
	url := g.baseURL + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: health check status %d", ErrProviderFailure, resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
