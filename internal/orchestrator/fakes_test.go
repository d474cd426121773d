// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/n1n-api/picturebook/internal/imagegen"
	"github.com/n1n-api/picturebook/internal/model"
)

// tinyPNG returns a valid, tiny PNG so imgutil's decode step succeeds.
func tinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	_ = png.Encode(buf, img)
	return buf.Bytes()
}

// fakeGenerator returns tinyPNG() for every call, except for prompts
// containing a marker listed in failAlways/failNTimes, which fail
// permanently or a fixed number of times before succeeding. Markers let
// tests target a specific page's content without coupling to prompt
// template internals.
type fakeGenerator struct {
	mu         sync.Mutex
	calls      int
	failAlways map[string]bool
	failNTimes map[string]int
	requests   []imagegen.GenerateRequest
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		failAlways: map[string]bool{},
		failNTimes: map[string]int{},
	}
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req imagegen.GenerateRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)

	for marker := range f.failAlways {
		if strings.Contains(req.Prompt, marker) {
			return nil, fmt.Errorf("%w: permanent failure for %s", imagegen.ErrProviderFailure, marker)
		}
	}
	for marker, n := range f.failNTimes {
		if n > 0 && strings.Contains(req.Prompt, marker) {
			f.failNTimes[marker] = n - 1
			return nil, fmt.Errorf("%w: transient failure for %s", imagegen.ErrProviderFailure, marker)
		}
	}
	return tinyPNG(), nil
}

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return s.URLFor(key), nil
}

func (s *fakeStore) URLFor(key string) string {
	return "https://cdn.test/" + key
}

// fixedConfigSource always returns the same provider config.
type fixedConfigSource struct {
	cfg model.ProviderConfig
}

func (f fixedConfigSource) ActiveImageProvider() model.ProviderConfig { return f.cfg }

// emptyConfigSource simulates no provider configured (ConfigFailure path).
type emptyConfigSource struct{}

func (emptyConfigSource) ActiveImageProvider() model.ProviderConfig { return model.ProviderConfig{} }
