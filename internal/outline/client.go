// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package outline is the external collaborator that turns a topic (plus
// optional reference images) into a page-by-page book outline. The
// orchestration engine treats its output as opaque input (spec.md §3); this
// package exists so cmd/picturebook can run the whole pipeline end to end.
package outline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/n1n-api/picturebook/internal/model"
)

// Client produces an Outline for a topic.
type Client interface {
	GenerateOutline(ctx context.Context, topic string, refs [][]byte) (model.Outline, error)
}

// chatClient drives any OpenAI-compatible chat-completion endpoint,
// matching the shape the image generators already use for provider config.
type chatClient struct {
	client openai.Client
	cfg    model.ProviderConfig
}

// NewClient builds a Client from the active text-generation provider
// configuration.
func NewClient(cfg model.ProviderConfig, httpClient *http.Client) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &chatClient{client: openai.NewClient(opts...), cfg: cfg}
}

// outlineResponse is the JSON shape the model is instructed to return.
type outlineResponse struct {
	FullOutline string `json:"full_outline"`
	Pages       []struct {
		Index   int    `json:"index"`
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"pages"`
}

const systemPrompt = `You are a picture-book outline generator. Given a topic and optional
reference images, respond with a single JSON object of the shape
{"full_outline": string, "pages": [{"index": int, "type": "cover"|"content"|"ending", "content": string}]}.
The first page must be type "cover". Respond with JSON only, no commentary.`

func (c *chatClient) GenerateOutline(ctx context.Context, topic string, refs [][]byte) (model.Outline, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(topic),
	}
	for _, ref := range refs {
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(ref)
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}))
	}

	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(parts),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Outline{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return model.Outline{}, fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
	}

	var parsed outlineResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return model.Outline{}, fmt.Errorf("%w: parse response: %w", ErrGenerationFailed, err)
	}
	if len(parsed.Pages) == 0 {
		return model.Outline{}, fmt.Errorf("%w: response had no pages", ErrGenerationFailed)
	}

	pages := make([]model.Page, 0, len(parsed.Pages))
	for _, p := range parsed.Pages {
		pt := model.PageType(p.Type)
		switch pt {
		case model.PageCover, model.PageContent, model.PageEnding:
		default:
			pt = model.PageContent
		}
		pages = append(pages, model.Page{Index: p.Index, Type: pt, Content: p.Content})
	}

	return model.Outline{Pages: pages, FullOutline: parsed.FullOutline}, nil
}
