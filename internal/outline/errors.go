// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package outline

import "errors"

// ErrGenerationFailed wraps any failure from the underlying text-generation
// call or from parsing its response into a page list.
var ErrGenerationFailed = errors.New("outline generation failed")
