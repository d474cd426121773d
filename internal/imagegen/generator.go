// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package imagegen is the generator abstraction: a single capability,
// GenerateImage, with three concrete variants (native-multimodal,
// OpenAI-compatible chat-image, and a generic HTTP image API), selected by
// a factory from provider configuration.
package imagegen

import "context"

// GenerateRequest carries the union of parameters the three variants
// consume; each variant reads only the subset it understands (spec.md
// §4.1 — parameter differences are handled inside each variant, not
// exposed in the common contract beyond this struct).
type GenerateRequest struct {
	Prompt      string
	AspectRatio string
	Size        string
	Model       string
	Temperature float64
	Quality     string

	// ReferenceImage is the single optional reference used by the
	// native_multimodal variant.
	ReferenceImage []byte

	// ReferenceImages is the ordered reference list used by the image_api
	// variant. User-supplied references precede the cover reference.
	ReferenceImages [][]byte
}

// Generator is the capability contract every provider variant implements.
type Generator interface {
	// GenerateImage returns the raw image bytes produced for req, or an
	// error wrapping ErrProviderFailure.
	GenerateImage(ctx context.Context, req GenerateRequest) ([]byte, error)
}
