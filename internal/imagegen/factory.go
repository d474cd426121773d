// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package imagegen

import (
	"fmt"
	"net/http"
	"time"

	"github.com/n1n-api/picturebook/internal/model"
)

// httpTimeout is the hard per-call timeout for every generator's outbound
// request, per spec.md §5 ("Per-HTTP-call timeout").
const httpTimeout = 30 * time.Second

// NewGenerator selects and constructs the concrete Generator for cfg.Type.
func NewGenerator(cfg model.ProviderConfig) (Generator, error) {
	client := &http.Client{Timeout: httpTimeout}

	switch cfg.Type {
	case model.ProviderNativeMultimodal:
		return newNativeMultimodalGenerator(cfg, client)
	case model.ProviderOpenAICompatible:
		return newOpenAICompatibleGenerator(cfg, client)
	case model.ProviderImageAPI:
		return newImageAPIGenerator(cfg, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProviderType, cfg.Type)
	}
}
