// Package blobvault provides the upload entry points and transfer dispatch.
package blobvault

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/metrics"
	"github.com/stackline-io/blobvault/internal/transfer/planner"
	"github.com/stackline-io/blobvault/internal/validation"
)

const (
	// DefaultContentType is used when content type detection fails.
	DefaultContentType = "application/octet-stream"
)

// Object metadata keys recorded on every upload.
const (
	metaOriginalName = "original-name"
	metaUploadMethod = "upload-method"
	metaFileSize     = "file-size"
	metaOwner        = "owner"
)

// GenerateKey builds a collision-free object key for a file name. Keys for
// owned uploads are scoped under users/<owner>/; anonymous uploads go under
// public/.
func GenerateKey(owner, filename string) string {
	name := filepath.Base(filename)
	id := uuid.NewString()
	if owner != "" {
		return fmt.Sprintf("users/%s/%s_%s", owner, id, name)
	}
	return fmt.Sprintf("public/%s_%s", id, name)
}

// Upload transfers size bytes from reader to the given object key, choosing
// the transfer strategy from the declared size: a single PUT below the
// multipart threshold, a concurrent multipart session above it, and
// sequential part streaming past the streaming threshold.
//
// Validation failures, including a declared size over the configured cap or
// a disallowed extension, are returned before any network interaction.
// Multipart transfers are atomic: on any part failure the session is aborted
// and an aggregate error names every failed part.
//
// Example:
//
//	outcome, err := client.Upload(ctx, "reports/q3.parquet", f, size,
//	    blobvault.WithOwner("analytics"),
//	)
func (c *Client) Upload(
	ctx context.Context,
	key string,
	reader io.Reader,
	size int64,
	opts ...blobtypes.UploadOption,
) (*blobtypes.UploadOutcome, error) {
	if reader == nil {
		return nil, errors.NewError("upload", errors.ErrInvalidInput).
			WithMessage("reader cannot be nil")
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	if err := validation.ValidateUpload(key, size, c.cfg.MaxFileSize, c.cfg.AllowedExtensions); err != nil {
		return nil, err
	}

	optCfg := &blobtypes.UploadOptionConfig{}
	for _, opt := range opts {
		opt(optCfg)
	}

	plan := planner.Classify(size, c.cfg.Tuning)
	spec := blobtypes.UploadSpec{
		Key:         key,
		TotalSize:   size,
		ContentType: optCfg.ContentType,
		Owner:       optCfg.Owner,
		Metadata:    buildMetadata(key, size, plan.Strategy, optCfg),
	}

	c.log.Info("upload classified",
		zap.String("key", key),
		zap.Int64("size", size),
		zap.String("strategy", string(plan.Strategy)),
		zap.Int("parts", plan.TotalParts),
		zap.Int("concurrency", plan.Concurrency))

	var (
		outcome *blobtypes.UploadOutcome
		err     error
	)
	if plan.Strategy == blobtypes.StrategySingleShot {
		outcome, err = c.uploadWhole(ctx, spec, reader)
	} else {
		if spec.ContentType == "" {
			spec.ContentType = detectContentTypeFromExtension(key)
		}
		outcome, err = c.orchestrator.Run(ctx, spec, plan, reader)
	}
	if err != nil {
		metrics.UploadsCompleted.WithLabelValues(string(plan.Strategy), "failure").Inc()
		return nil, err
	}

	metrics.UploadsCompleted.WithLabelValues(string(plan.Strategy), "success").Inc()
	outcome.URL = c.store.ObjectURL(key)
	return outcome, nil
}

// UploadFile uploads a local file. When key is empty, a collision-free key is
// generated from the file name and the WithOwner option.
//
// This is a convenience method that handles file opening, sizing, and key
// generation.
func (c *Client) UploadFile(
	ctx context.Context,
	key, path string,
	opts ...blobtypes.UploadOption,
) (*blobtypes.UploadOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewError("uploadFile", err).WithKey(key)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewError("uploadFile", err).WithKey(key)
	}

	if key == "" {
		optCfg := &blobtypes.UploadOptionConfig{}
		for _, opt := range opts {
			opt(optCfg)
		}
		key = GenerateKey(optCfg.Owner, info.Name())
	}

	return c.Upload(ctx, key, f, info.Size(), opts...)
}

// uploadWhole is the single-shot path: the body is buffered in full, content
// type is sniffed from the actual bytes, and one PUT commits the object.
func (c *Client) uploadWhole(
	ctx context.Context,
	spec blobtypes.UploadSpec,
	reader io.Reader,
) (*blobtypes.UploadOutcome, error) {
	start := time.Now()

	data := make([]byte, spec.TotalSize)
	if spec.TotalSize > 0 {
		n, err := io.ReadFull(reader, data)
		if err != nil {
			return nil, &errors.SizeMismatchError{
				Key:      spec.Key,
				Declared: spec.TotalSize,
				Actual:   int64(n),
			}
		}
	}
	var probe [1]byte
	if n, _ := reader.Read(probe[:]); n > 0 {
		return nil, &errors.SizeMismatchError{
			Key:      spec.Key,
			Declared: spec.TotalSize,
			Actual:   spec.TotalSize + int64(n),
		}
	}

	if spec.ContentType == "" {
		spec.ContentType = mimetype.Detect(data).String()
	}

	etag, err := c.store.PutWhole(ctx, spec, data)
	if err != nil {
		return nil, err
	}
	metrics.BytesUploaded.Add(float64(len(data)))

	return &blobtypes.UploadOutcome{
		Key:      spec.Key,
		ETag:     etag,
		Size:     spec.TotalSize,
		Strategy: blobtypes.StrategySingleShot,
		Duration: time.Since(start),
	}, nil
}

// buildMetadata merges user metadata with the standard bookkeeping entries.
func buildMetadata(key string, size int64, strategy blobtypes.Strategy, optCfg *blobtypes.UploadOptionConfig) map[string]string {
	md := make(map[string]string, len(optCfg.Metadata)+4)
	for k, v := range optCfg.Metadata {
		md[k] = v
	}
	md[metaOriginalName] = filepath.Base(key)
	md[metaUploadMethod] = string(strategy)
	md[metaFileSize] = strconv.FormatInt(size, 10)
	if optCfg.Owner != "" {
		md[metaOwner] = optCfg.Owner
	}
	return md
}

// detectContentTypeFromExtension resolves a MIME type from the key's
// extension. Used on multipart paths where the body is never buffered whole.
func detectContentTypeFromExtension(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return DefaultContentType
}
