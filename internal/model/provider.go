// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package model

// ProviderType enumerates the three generator variants this system knows
// how to drive.
type ProviderType string

const (
	ProviderNativeMultimodal ProviderType = "native_multimodal"
	ProviderOpenAICompatible ProviderType = "openai_compatible"
	ProviderImageAPI         ProviderType = "image_api"
)

// Quality mirrors the OpenAI-style image quality enum.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHD       Quality = "hd"
)

// ProviderConfig is the recognized set of per-provider options. Every field
// here is enumerated by the specification; nothing else is read from the
// config source for a generator.
type ProviderConfig struct {
	Name               string       `yaml:"-"`
	Type               ProviderType `yaml:"type"`
	APIKey             string       `yaml:"api_key"`
	BaseURL            string       `yaml:"base_url"`
	Model              string       `yaml:"model"`
	DefaultAspectRatio string       `yaml:"default_aspect_ratio"`
	DefaultSize        string       `yaml:"default_size"`
	Temperature        float64      `yaml:"temperature"`
	Quality            Quality      `yaml:"quality"`
	ShortPrompt        bool         `yaml:"short_prompt"`
	HighConcurrency    bool         `yaml:"high_concurrency"`
}

// StorageConfig configures the S3-compatible object store client.
type StorageConfig struct {
	EndpointURL     string `yaml:"endpoint_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	BucketName      string `yaml:"bucket_name"`
	PublicDomain    string `yaml:"public_domain"`
}
