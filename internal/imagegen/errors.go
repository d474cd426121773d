// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import "errors"

// ErrProviderFailure wraps any failure returned by a generator's underlying
// HTTP call or SDK: network errors, non-2xx responses, timeouts, and empty
// response bodies all surface this way. It is retried up to
// AUTO_RETRY_COUNT times by the orchestration engine.
var ErrProviderFailure = errors.New("provider failure")

// ErrEmptyImageData is wrapped by ErrProviderFailure when a generator
// returns a successful response with no image bytes.
var ErrEmptyImageData = errors.New("generator returned empty data")

// ErrUnknownProviderType is a ConfigFailure: the provider config names a
// type the factory doesn't recognize.
var ErrUnknownProviderType = errors.New("unknown provider type")
