// Package s3blob implements the domain blob interfaces on AWS SDK v2. The
// journal keeps three object trees in one bucket: the drop folder new trade
// files land in, monthly cold-storage archives, and position snapshot
// exports. Any S3-compatible endpoint works (MinIO, R2), not just AWS.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds connection parameters for the journal's bucket.
type ClientConfig struct {
	// Endpoint overrides the AWS default for self-hosted or third-party
	// S3-compatible stores. Empty means standard AWS S3.
	Endpoint string

	// Region for AWS, or whatever placeholder the provider expects.
	Region string

	// Bucket holding drops/, archive/, and exports/.
	Bucket string

	AccessKey string
	SecretKey string

	// UseSSL selects the scheme when Endpoint is given without one.
	UseSSL bool

	// ForcePathStyle puts the bucket in the URL path instead of the
	// subdomain. Most non-AWS endpoints require it.
	ForcePathStyle bool
}

// Client wraps the SDK client with the journal's bucket. The reader, writer,
// and archiver in this package all operate through it.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New connects to the configured bucket using static credentials and verifies
// access with a HeadBucket probe, so a bad endpoint or key fails at startup
// rather than on the first sync pass.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	c := &Client{
		s3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint, cfg.UseSSL))
			}
			o.UsePathStyle = cfg.ForcePathStyle
		}),
		bucket: cfg.Bucket,
	}

	if err := c.Health(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Health verifies the bucket exists and the credentials can reach it.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Close exists for symmetry with the other clients; the SDK's HTTP client
// needs no teardown.
func (c *Client) Close() error {
	return nil
}

// S3 exposes the raw SDK client to the reader and writer in this package.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the journal's bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// withScheme prepends https:// or http:// when the configured endpoint
// carries no scheme of its own.
func withScheme(endpoint string, useSSL bool) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
