// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package model holds the data types shared across the orchestration
// engine and its collaborators: pages, outlines, and provider config.
package model

// PageType distinguishes the cover page from everything else. The engine
// only cares about cover vs. non-cover; ending pages are treated the same
// as content pages (see DESIGN.md).
type PageType string

const (
	PageCover   PageType = "cover"
	PageContent PageType = "content"
	PageEnding  PageType = "ending"
)

// Page is one unit of illustrated output. Immutable once a task starts.
type Page struct {
	Index   int
	Type    PageType
	Content string
}

// IsCover reports whether p is the distinguished cover page.
func (p Page) IsCover() bool {
	return p.Type == PageCover
}

// Outline is the ordered page list plus the serialized form fed back into
// every prompt for context. Produced externally; the engine treats it as
// opaque input.
type Outline struct {
	Pages       []Page
	FullOutline string
}
