// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package orchestrator

import "errors"

// ErrInputFailure covers a synchronous, pre-TaskState validation failure:
// empty topic, missing pages, malformed outline. No TaskState is created.
var ErrInputFailure = errors.New("input failure")

// ErrConfigFailure covers missing credentials, unknown provider type, or
// missing templates, detected before a TaskState is created.
var ErrConfigFailure = errors.New("config failure")
