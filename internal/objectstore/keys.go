// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package objectstore

import "fmt"

// OriginalKey returns the bit-exact key for a page's original PNG, per
// spec.md §6.
func OriginalKey(taskID string, index int) string {
	return fmt.Sprintf("%s/%d.png", taskID, index)
}

// ThumbnailKey returns the bit-exact key for a page's JPEG thumbnail, per
// spec.md §6.
func ThumbnailKey(taskID string, index int) string {
	return fmt.Sprintf("%s/thumb_%d.jpg", taskID, index)
}
