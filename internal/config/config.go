// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package config loads provider and storage configuration from YAML,
// with environment-variable overrides for secrets, and exposes it through
// a hot-reloadable Source so in-flight tasks keep the snapshot they
// started with while new tasks see the latest.
package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/n1n-api/picturebook/internal/model"
)

// providerSection mirrors the {active_provider, providers: {name: {...}}}
// shape of image_providers.yaml / text_providers.yaml.
type providerSection struct {
	ActiveProvider string                          `yaml:"active_provider"`
	Providers      map[string]model.ProviderConfig `yaml:"providers"`
}

// fileFormat is the on-disk shape of a single providers.yaml combining
// every section, per SPEC_FULL.md §4.12.
type fileFormat struct {
	ImageGeneration providerSection     `yaml:"image_generation"`
	TextGeneration  providerSection     `yaml:"text_generation"`
	Storage         model.StorageConfig `yaml:"storage"`
}

// Snapshot is an immutable, point-in-time view of all configuration.
type Snapshot struct {
	ActiveImageProviderName string
	ImageProviders          map[string]model.ProviderConfig
	ActiveTextProviderName  string
	TextProviders           map[string]model.ProviderConfig
	Storage                 model.StorageConfig
}

// ActiveImageProvider implements orchestrator.ConfigSource.
func (s *Snapshot) ActiveImageProvider() model.ProviderConfig {
	if s == nil {
		return model.ProviderConfig{}
	}
	cfg := s.ImageProviders[s.ActiveImageProviderName]
	cfg.Name = s.ActiveImageProviderName
	return cfg
}

// ActiveTextProvider returns the configured text-generation provider, used
// by the outline client.
func (s *Snapshot) ActiveTextProvider() model.ProviderConfig {
	if s == nil {
		return model.ProviderConfig{}
	}
	cfg := s.TextProviders[s.ActiveTextProviderName]
	cfg.Name = s.ActiveTextProviderName
	return cfg
}

// Source holds the current Snapshot behind an atomic pointer so readers
// never block writers and never observe a half-applied reload.
type Source struct {
	path string
	ptr  atomic.Pointer[Snapshot]
}

// Load reads path and environment overrides, populating a new Source.
func Load(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing YAML file plus environment overrides and
// atomically swaps the active Snapshot. Tasks already running keep
// whatever Snapshot they read at their own start, per spec.md §9.
func (s *Source) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", s.path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", s.path, err)
	}

	snap := &Snapshot{
		ActiveImageProviderName: f.ImageGeneration.ActiveProvider,
		ImageProviders:          f.ImageGeneration.Providers,
		ActiveTextProviderName:  f.TextGeneration.ActiveProvider,
		TextProviders:           f.TextGeneration.Providers,
		Storage:                f.Storage,
	}
	applyEnvOverrides(snap)

	s.ptr.Store(snap)
	return nil
}

// Current returns the live Snapshot. Safe for concurrent use; never nil
// once Load has succeeded once.
func (s *Source) Current() *Snapshot {
	return s.ptr.Load()
}

// ActiveImageProvider implements orchestrator.ConfigSource by delegating to
// the current Snapshot.
func (s *Source) ActiveImageProvider() model.ProviderConfig {
	return s.Current().ActiveImageProvider()
}

// applyEnvOverrides mirrors the original's env-var-first precedence for
// secrets: an environment variable, when set, always wins over the value
// read from YAML.
func applyEnvOverrides(snap *Snapshot) {
	if active := os.Getenv("PICTUREBOOK_ACTIVE_IMAGE_PROVIDER"); active != "" {
		snap.ActiveImageProviderName = active
	}
	if active := os.Getenv("PICTUREBOOK_ACTIVE_TEXT_PROVIDER"); active != "" {
		snap.ActiveTextProviderName = active
	}

	for name, cfg := range snap.ImageProviders {
		if key := os.Getenv(envKeyForProvider(name)); key != "" {
			cfg.APIKey = key
			snap.ImageProviders[name] = cfg
		}
	}
	for name, cfg := range snap.TextProviders {
		if key := os.Getenv(envKeyForProvider(name)); key != "" {
			cfg.APIKey = key
			snap.TextProviders[name] = cfg
		}
	}

	if v := os.Getenv("PICTUREBOOK_STORAGE_ENDPOINT_URL"); v != "" {
		snap.Storage.EndpointURL = v
	}
	if v := os.Getenv("PICTUREBOOK_STORAGE_ACCESS_KEY_ID"); v != "" {
		snap.Storage.AccessKeyID = v
	}
	if v := os.Getenv("PICTUREBOOK_STORAGE_SECRET_ACCESS_KEY"); v != "" {
		snap.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("PICTUREBOOK_STORAGE_BUCKET_NAME"); v != "" {
		snap.Storage.BucketName = v
	}
	if v := os.Getenv("PICTUREBOOK_STORAGE_PUBLIC_DOMAIN"); v != "" {
		snap.Storage.PublicDomain = v
	}
}

func envKeyForProvider(name string) string {
	return "PICTUREBOOK_PROVIDER_" + upperSnake(name) + "_API_KEY"
}

func upperSnake(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
		case c == '-':
			out[i] = '_'
		default:
			out[i] = c
		}
	}
	return string(out)
}
