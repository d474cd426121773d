// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package metrics

// Attribute and value names follow the OpenTelemetry gen-ai semantic
// conventions: https://opentelemetry.io/docs/specs/semconv/gen-ai/gen-ai-metrics/
const (
	genaiAttributeOperationName = "gen_ai.operation.name"
	genaiAttributeSystemName    = "gen_ai.system"
	genaiAttributeRequestModel  = "gen_ai.request.model"
	genaiAttributeErrorType     = "error.type"
	genaiAttributeTokenType     = "gen_ai.token.type"

	genaiAttributeImageCount = "gen_ai.image.count"
	genaiAttributeImageModel = "gen_ai.image.model"
	genaiAttributeImageSize  = "gen_ai.image.size"

	genaiOperationImageGeneration = "image_generation"

	genaiTokenTypeInput  = "input"
	genaiTokenTypeOutput = "output"

	genaiErrorTypeFallback = "_OTHER"

	// genaiSystemNative/OpenAICompatible/ImageAPI name the gen_ai.system
	// attribute for each of our three generator variants. There's no
	// registered gen-ai system name for any of them, so we use our own
	// provider-type strings, matching the teacher's fallback-to-name
	// behavior for backends outside its two known schemas.
	genaiSystemNative           = "native_multimodal"
	genaiSystemOpenAICompatible = "openai_compatible"
	genaiSystemImageAPI         = "image_api"
)
