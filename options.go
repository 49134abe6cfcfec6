// Package blobvault provides functional options for configuring client behavior.
// These options follow the functional options pattern for clean, composable configuration.
package blobvault

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	"github.com/stackline-io/blobvault/blobtypes"
)

// WithBucket binds the client to a bucket. Required.
func WithBucket(bucket string) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.Bucket = bucket
	}
}

// WithRegion sets the AWS region for store operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom store endpoint URL.
// This is useful for S3-compatible services or local testing with MinIO.
func WithEndpoint(endpoint string) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
// Default is false (uses virtual-hosted style).
func WithForcePathStyle(forcePathStyle bool) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of retry attempts for failed requests.
// Default is 3 retries. Retries happen inside a single store call; the
// transfer layer never re-sends parts on its own.
func WithMaxRetries(maxRetries int) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.Logger = log
	}
}

// WithTuning overrides the transfer tuning. Zero fields keep their defaults.
func WithTuning(tuning blobtypes.TransferTuning) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.Tuning = tuning
	}
}

// WithMaxFileSize caps the declared size an upload may admit. Zero means
// unlimited.
func WithMaxFileSize(maxSize int64) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.MaxFileSize = maxSize
	}
}

// WithAllowedExtensions restricts uploads to the given file extensions
// (with or without the leading dot). Empty means any extension is accepted.
func WithAllowedExtensions(extensions ...string) blobtypes.Option {
	return func(c *blobtypes.ClientConfig) {
		c.AllowedExtensions = extensions
	}
}

// WithContentType sets the MIME type stored with the object, skipping
// detection.
func WithContentType(contentType string) blobtypes.UploadOption {
	return func(c *blobtypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithOwner tags the upload with the owning user. The owner is recorded in
// object metadata and scopes generated keys under users/<owner>/.
func WithOwner(owner string) blobtypes.UploadOption {
	return func(c *blobtypes.UploadOptionConfig) {
		c.Owner = owner
	}
}

// WithMetadata attaches user-defined metadata to the object.
func WithMetadata(metadata map[string]string) blobtypes.UploadOption {
	return func(c *blobtypes.UploadOptionConfig) {
		c.Metadata = metadata
	}
}

// WithPrefix filters list results to keys with the given prefix.
func WithPrefix(prefix string) blobtypes.ListOption {
	return func(c *blobtypes.ListOptionConfig) {
		c.Prefix = prefix
	}
}

// WithMaxKeys controls the list page size (1-1000, default 1000).
func WithMaxKeys(maxKeys int32) blobtypes.ListOption {
	return func(c *blobtypes.ListOptionConfig) {
		if maxKeys > 0 {
			c.MaxKeys = maxKeys
		}
	}
}

// WithContinuationToken continues a listing from a previous truncated page.
func WithContinuationToken(token string) blobtypes.ListOption {
	return func(c *blobtypes.ListOptionConfig) {
		c.ContinuationToken = token
	}
}
