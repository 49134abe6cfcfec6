// Package blobvault provides client initialization and configuration.
package blobvault

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/gateway"
	"github.com/stackline-io/blobvault/internal/s3api"
	"github.com/stackline-io/blobvault/internal/transfer/multipart"
	"github.com/stackline-io/blobvault/internal/validation"
)

// Client is a bucket-bound upload client. It is safe for concurrent use; all
// per-upload state lives in the transfer, never on the client.
type Client struct {
	// s3Client is the underlying AWS SDK S3 client surface
	s3Client s3api.S3API

	// store is the single seam between transfer logic and the wire
	store *gateway.S3Store

	// orchestrator drives multipart sessions to commit or abort
	orchestrator *multipart.Orchestrator

	cfg blobtypes.ClientConfig
	log *zap.Logger
}

// New creates a client bound to one bucket with the provided options.
// Credentials come from the default AWS chain unless WithAWSConfig overrides
// it.
//
// Example:
//
//	client, err := blobvault.New(
//	    blobvault.WithBucket("my-bucket"),
//	    blobvault.WithRegion("us-west-2"),
//	    blobvault.WithMaxRetries(3),
//	)
func New(opts ...blobtypes.Option) (*Client, error) {
	cfg := blobtypes.ClientConfig{
		MaxRetries: 3,
		Tuning:     blobtypes.DefaultTuning(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Tuning = cfg.Tuning.Normalize()

	if err := validation.ValidateBucketName(cfg.Bucket); err != nil {
		return nil, err
	}

	var awsCfg aws.Config
	var err error
	if cfg.CustomAWSConfig != nil {
		awsCfg = *cfg.CustomAWSConfig
	} else {
		awsCfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	if cfg.MaxRetries > 0 {
		awsCfg.RetryMaxAttempts = cfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewWithClient creates a client over a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...blobtypes.Option) *Client {
	cfg := blobtypes.ClientConfig{
		Tuning: blobtypes.DefaultTuning(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Tuning = cfg.Tuning.Normalize()
	return newClient(s3Client, cfg)
}

func newClient(s3Client s3api.S3API, cfg blobtypes.ClientConfig) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	store := gateway.NewS3Store(s3Client, cfg.Bucket, cfg.Endpoint)
	return &Client{
		s3Client:     s3Client,
		store:        store,
		orchestrator: multipart.NewOrchestrator(store, log),
		cfg:          cfg,
		log:          log,
	}
}

// Bucket returns the bucket this client is bound to.
func (c *Client) Bucket() string { return c.cfg.Bucket }

// Tuning returns the transfer tuning in effect, fully normalized.
func (c *Client) Tuning() blobtypes.TransferTuning { return c.cfg.Tuning }

// Close releases any resources held by the client.
// Currently a no-op but included for future extensibility.
func (c *Client) Close() error {
	return nil
}
