// Package gateway abstracts the object store behind the five primitives the
// transfer core consumes: create session, put part, complete, abort, and
// whole-object put. No upload logic lives here beyond translating calls.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/s3api"
)

// ObjectStore is the boundary the transfer core talks to. Each call is either
// one success or one terminal failure; retry/backoff inside a single call is
// the store client's business, not the orchestrator's.
type ObjectStore interface {
	// CreateSession opens a multipart session and returns its opaque ID.
	CreateSession(ctx context.Context, spec blobtypes.UploadSpec) (string, error)

	// PutPart uploads one part and returns the store's etag for it.
	PutPart(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error)

	// Complete commits the session. Parts must be sorted by ascending part number.
	Complete(ctx context.Context, key, sessionID string, parts []blobtypes.CompletedPart) (string, error)

	// Abort discards an open session. Best-effort: callers log failures and
	// never propagate them.
	Abort(ctx context.Context, key, sessionID string) error

	// PutWhole uploads the entire object body in one request, no session.
	PutWhole(ctx context.Context, spec blobtypes.UploadSpec, data []byte) (string, error)
}

// S3Store implements ObjectStore over the AWS SDK v2 S3 client.
type S3Store struct {
	client   s3api.S3API
	bucket   string
	endpoint string
}

// NewS3Store creates a gateway bound to one bucket. The endpoint, when known,
// is used only to build object URLs.
func NewS3Store(client s3api.S3API, bucket, endpoint string) *S3Store {
	return &S3Store{
		client:   client,
		bucket:   bucket,
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// Bucket returns the bucket this gateway is bound to.
func (g *S3Store) Bucket() string { return g.bucket }

// ObjectURL builds the public URL for a committed object. Empty when no
// endpoint is configured.
func (g *S3Store) ObjectURL(key string) string {
	if g.endpoint == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", g.endpoint, g.bucket, key)
}

// CreateSession opens a multipart session for the given spec.
func (g *S3Store) CreateSession(ctx context.Context, spec blobtypes.UploadSpec) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(spec.Key),
		ContentType: aws.String(spec.ContentType),
	}
	if len(spec.Metadata) > 0 {
		input.Metadata = spec.Metadata
	}

	output, err := g.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("createSession", g.bucket, spec.Key, err)
	}
	return aws.ToString(output.UploadId), nil
}

// PutPart uploads one part of an open session.
func (g *S3Store) PutPart(
	ctx context.Context,
	key, sessionID string,
	partNumber int32,
	data []byte,
) (string, error) {
	input := &s3.UploadPartInput{
		Bucket:     aws.String(g.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(sessionID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	}

	output, err := g.client.UploadPart(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("putPart", g.bucket, key, err)
	}
	return aws.ToString(output.ETag), nil
}

// Complete commits an open session with the ordered part manifest.
func (g *S3Store) Complete(
	ctx context.Context,
	key, sessionID string,
	parts []blobtypes.CompletedPart,
) (string, error) {
	completed := make([]awstypes.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}

	input := &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	}

	output, err := g.client.CompleteMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("complete", g.bucket, key, err)
	}
	return aws.ToString(output.ETag), nil
}

// Abort discards an open session and any uploaded parts.
func (g *S3Store) Abort(ctx context.Context, key, sessionID string) error {
	input := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
	}
	if _, err := g.client.AbortMultipartUpload(ctx, input); err != nil {
		return errors.NewObjectError("abort", g.bucket, key, err)
	}
	return nil
}

// PutWhole uploads the whole object body in one request.
func (g *S3Store) PutWhole(ctx context.Context, spec blobtypes.UploadSpec, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(g.bucket),
		Key:           aws.String(spec.Key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(spec.ContentType),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if len(spec.Metadata) > 0 {
		input.Metadata = spec.Metadata
	}

	output, err := g.client.PutObject(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("putWhole", g.bucket, spec.Key, err)
	}
	return aws.ToString(output.ETag), nil
}

// Verify S3Store satisfies the boundary the transfer core consumes
var _ ObjectStore = (*S3Store)(nil)
