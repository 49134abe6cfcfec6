// Package blobvault provides object read, list, and management operations.
package blobvault

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/validation"
)

// deleteBatchSize is the S3 limit on keys per DeleteObjects request.
const deleteBatchSize = 1000

// Get downloads an object and returns its entire body in memory.
// For large objects prefer Download, which streams to a writer.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	output, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.convertAWSError("get", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, errors.NewObjectError("get", c.cfg.Bucket, key, err)
	}
	return data, nil
}

// Download streams an object's body into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return 0, err
	}
	if w == nil {
		return 0, errors.NewError("download", errors.ErrInvalidInput).
			WithMessage("writer cannot be nil")
	}

	output, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, c.convertAWSError("download", key, err)
	}
	defer output.Body.Close()

	n, err := io.Copy(w, output.Body)
	if err != nil {
		return n, errors.NewObjectError("download", c.cfg.Bucket, key, err)
	}
	return n, nil
}

// DownloadRange streams the byte range [start, end] (inclusive, per the
// store's Range semantics) into w and returns the bytes written.
func (c *Client) DownloadRange(ctx context.Context, key string, start, end int64, w io.Writer) (int64, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return 0, err
	}
	if w == nil {
		return 0, errors.NewError("downloadRange", errors.ErrInvalidInput).
			WithMessage("writer cannot be nil")
	}
	if start < 0 || end < start {
		return 0, errors.NewError("downloadRange", errors.ErrInvalidInput).
			WithKey(key).
			WithMessage(fmt.Sprintf("invalid byte range %d-%d", start, end))
	}

	output, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return 0, c.convertAWSError("downloadRange", key, err)
	}
	defer output.Body.Close()

	n, err := io.Copy(w, output.Body)
	if err != nil {
		return n, errors.NewObjectError("downloadRange", c.cfg.Bucket, key, err)
	}
	return n, nil
}

// DownloadFile streams an object to a local file, creating it if needed.
func (c *Client) DownloadFile(ctx context.Context, key, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewError("downloadFile", err).WithKey(key)
	}
	defer f.Close()

	if _, err := c.Download(ctx, key, f); err != nil {
		return err
	}
	return f.Sync()
}

// Stat returns an object's metadata without fetching its body. The original
// file name is recovered from upload metadata when present, falling back to
// the key's base name.
func (c *Client) Stat(ctx context.Context, key string) (*blobtypes.ObjectMetadata, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	output, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.convertAWSError("stat", key, err)
	}

	name := output.Metadata[metaOriginalName]
	if name == "" {
		name = filepath.Base(key)
	}

	return &blobtypes.ObjectMetadata{
		Name:          name,
		ContentType:   aws.ToString(output.ContentType),
		ContentLength: aws.ToInt64(output.ContentLength),
		LastModified:  aws.ToTime(output.LastModified),
		ETag:          aws.ToString(output.ETag),
		Metadata:      output.Metadata,
	}, nil
}

// Exists reports whether an object exists, without treating absence as an
// error.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Stat(ctx, key)
	if err != nil {
		if errors.IsObjectNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns one page of objects. Use WithPrefix, WithMaxKeys, and
// WithContinuationToken to filter and paginate.
func (c *Client) List(ctx context.Context, opts ...blobtypes.ListOption) (*blobtypes.ListResult, error) {
	optCfg := &blobtypes.ListOptionConfig{}
	for _, opt := range opts {
		opt(optCfg)
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.cfg.Bucket),
	}
	if optCfg.Prefix != "" {
		input.Prefix = aws.String(optCfg.Prefix)
	}
	if optCfg.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(optCfg.MaxKeys)
	}
	if optCfg.ContinuationToken != "" {
		input.ContinuationToken = aws.String(optCfg.ContinuationToken)
	}

	output, err := c.s3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.NewError("list", err).WithBucket(c.cfg.Bucket)
	}

	result := &blobtypes.ListResult{
		Objects:               make([]blobtypes.ObjectInfo, 0, len(output.Contents)),
		IsTruncated:           aws.ToBool(output.IsTruncated),
		NextContinuationToken: aws.ToString(output.NextContinuationToken),
	}
	for _, obj := range output.Contents {
		result.Objects = append(result.Objects, blobtypes.ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
			StorageClass: string(obj.StorageClass),
		})
	}
	return result, nil
}

// ListAll collects every object under a prefix, following pagination to the
// end. Use with care on very large buckets.
func (c *Client) ListAll(ctx context.Context, prefix string) ([]blobtypes.ObjectInfo, error) {
	var all []blobtypes.ObjectInfo
	token := ""
	for {
		opts := []blobtypes.ListOption{WithPrefix(prefix)}
		if token != "" {
			opts = append(opts, WithContinuationToken(token))
		}
		page, err := c.List(ctx, opts...)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if !page.IsTruncated {
			return all, nil
		}
		token = page.NextContinuationToken
	}
}

// Delete removes a single object. Deleting a non-existent object is not an
// error, matching store semantics.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}

	if _, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return c.convertAWSError("delete", key, err)
	}
	return nil
}

// DeleteMany removes a batch of objects, chunking requests at the store's
// per-call limit. Per-key failures are collected in the result rather than
// failing the whole batch.
func (c *Client) DeleteMany(ctx context.Context, keys []string) (*blobtypes.DeleteResult, error) {
	if len(keys) == 0 {
		return &blobtypes.DeleteResult{}, nil
	}
	for _, key := range keys {
		if err := validation.ValidateObjectKey(key); err != nil {
			return nil, err
		}
	}

	result := &blobtypes.DeleteResult{}
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		identifiers := make([]awstypes.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			identifiers = append(identifiers, awstypes.ObjectIdentifier{Key: aws.String(key)})
		}

		output, err := c.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.cfg.Bucket),
			Delete: &awstypes.Delete{Objects: identifiers},
		})
		if err != nil {
			return nil, errors.NewError("deleteMany", err).WithBucket(c.cfg.Bucket)
		}

		for _, deleted := range output.Deleted {
			result.Deleted = append(result.Deleted, aws.ToString(deleted.Key))
		}
		for _, derr := range output.Errors {
			result.Errors = append(result.Errors, blobtypes.DeleteError{
				Key:     aws.ToString(derr.Key),
				Code:    aws.ToString(derr.Code),
				Message: aws.ToString(derr.Message),
			})
		}
	}
	return result, nil
}

// Copy duplicates an object within the bucket. Metadata is carried over by
// the store.
func (c *Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := validation.ValidateObjectKey(srcKey); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(dstKey); err != nil {
		return err
	}

	source := url.PathEscape(c.cfg.Bucket + "/" + srcKey)
	if _, err := c.s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.cfg.Bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	}); err != nil {
		return c.convertAWSError("copy", srcKey, err)
	}
	return nil
}

// Move copies an object to a new key and deletes the original. Not atomic:
// a failure after the copy leaves both keys in place.
func (c *Client) Move(ctx context.Context, srcKey, dstKey string) error {
	if err := c.Copy(ctx, srcKey, dstKey); err != nil {
		return err
	}
	if err := c.Delete(ctx, srcKey); err != nil {
		return errors.NewObjectError("move", c.cfg.Bucket, srcKey, err).
			WithMessage("copied but failed to delete source")
	}
	return nil
}

// Rename is Move under the name callers coming from filesystem APIs expect.
func (c *Client) Rename(ctx context.Context, oldKey, newKey string) error {
	return c.Move(ctx, oldKey, newKey)
}

// convertAWSError maps store not-found responses onto ErrObjectNotFound and
// wraps everything else with operation context.
func (c *Client) convertAWSError(op, key string, err error) error {
	var noSuchKey *awstypes.NoSuchKey
	var notFound *awstypes.NotFound
	if stderrors.As(err, &noSuchKey) || stderrors.As(err, &notFound) {
		return errors.NewObjectError(op, c.cfg.Bucket, key, errors.ErrObjectNotFound)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return errors.NewObjectError(op, c.cfg.Bucket, key, errors.ErrObjectNotFound)
		}
	}
	return errors.NewObjectError(op, c.cfg.Bucket, key, err)
}
