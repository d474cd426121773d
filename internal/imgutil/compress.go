// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package imgutil re-encodes image bytes to fit under a byte budget,
// trading quality for size until the target is met or quality bottoms out.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Register the PNG decoder; JPEG decoding comes from the encoder import above.
	_ "image/png"
)

// minQuality is the floor below which further compression stops being
// tried; at this point we accept whatever size results.
const minQuality = 20

// CompressToBudget decodes data (PNG or JPEG) and re-encodes it as JPEG,
// stepping the quality down until the result is at or under maxBytes, or
// quality bottoms out at minQuality. If data already decodes to a JPEG
// under budget, callers should prefer the original bytes; this function
// always re-encodes, matching the "lossy if needed" behavior the spec
// requires for reference-image compression.
func CompressToBudget(data []byte, maxBytes int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var out []byte
	for quality := 90; quality >= minQuality; quality -= 10 {
		buf := &bytes.Buffer{}
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg at quality %d: %w", quality, err)
		}
		out = buf.Bytes()
		if len(out) <= maxBytes {
			return out, nil
		}
	}
	// Quality bottomed out; return the smallest we managed rather than fail
	// the whole page over a reference image a few bytes over budget.
	return out, nil
}

// ThumbnailJPEG produces a JPEG for the `thumb_{index}.jpg` artifact, at or
// under maxBytes when some quality step reaches the budget; otherwise it
// returns the minQuality encoding, which may still exceed maxBytes.
func ThumbnailJPEG(data []byte, maxBytes int) ([]byte, error) {
	return CompressToBudget(data, maxBytes)
}
