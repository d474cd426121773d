// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package objectstore uploads artifact bytes to an S3-compatible bucket
// (R2, MinIO, or AWS S3 itself) under deterministic keys, and resolves
// those keys back to retrievable URLs.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/n1n-api/picturebook/internal/model"
)

// ErrStorageFailure wraps any failure from the underlying PUT. The
// orchestration engine does not retry these: a failed upload ends that
// page's generate attempt loop at once.
var ErrStorageFailure = errors.New("storage failure")

// Client uploads bytes under object keys and resolves keys to URLs.
type Client struct {
	s3       *s3.Client
	bucket   string
	endpoint string
	public   string
}

// New constructs a Client from storage configuration. It always uses
// path-style addressing, matching R2-compatible endpoints.
func New(ctx context.Context, cfg model.StorageConfig) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = true
	})

	return &Client{
		s3:       client,
		bucket:   cfg.BucketName,
		endpoint: strings.TrimRight(cfg.EndpointURL, "/"),
		public:   strings.TrimRight(cfg.PublicDomain, "/"),
	}, nil
}

// Upload performs an at-least-once write of data under key, overwriting
// any prior object at that key, and returns the URL it resolves to.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %w", ErrStorageFailure, c.bucket, key, err)
	}
	return c.URLFor(key), nil
}

// URLFor resolves key to a public URL, preferring the configured public
// domain, falling back to the endpoint/bucket/key shape, per spec.md §4.3.
func (c *Client) URLFor(key string) string {
	if c.public != "" {
		return fmt.Sprintf("%s/%s", c.public, key)
	}
	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key)
}
