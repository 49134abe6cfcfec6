// Package validation provides pre-flight input validation. Everything here
// runs before any network interaction.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/stackline-io/blobvault/errors"
)

const (
	// maxKeyLength is the S3 object key limit in bytes.
	maxKeyLength = 1024

	// maxBucketLength and minBucketLength bound S3 bucket names.
	minBucketLength = 3
	maxBucketLength = 63
)

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)

// ValidateBucketName checks that a bucket name satisfies the S3 naming rules.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewError("validate", errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}
	if len(bucket) < minBucketLength || len(bucket) > maxBucketLength {
		return errors.NewError("validate", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage(fmt.Sprintf("bucket name must be between %d and %d characters", minBucketLength, maxBucketLength))
	}
	if !bucketNameRegex.MatchString(bucket) {
		return errors.NewError("validate", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name contains invalid characters")
	}
	if strings.Contains(bucket, "..") {
		return errors.NewError("validate", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain consecutive periods")
	}
	return nil
}

// ValidateObjectKey checks that an object key is safe to send to the store.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validate", errors.ErrInvalidObjectKey).
			WithMessage("object key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return errors.NewError("validate", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage(fmt.Sprintf("object key exceeds %d bytes", maxKeyLength))
	}
	if strings.HasPrefix(key, "/") {
		return errors.NewError("validate", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot start with a slash")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return errors.NewError("validate", errors.ErrInvalidObjectKey).
				WithKey(key).
				WithMessage("object key cannot contain path traversal")
		}
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return errors.NewError("validate", errors.ErrInvalidObjectKey).
				WithKey(key).
				WithMessage("object key contains control characters")
		}
	}
	return nil
}

// ValidateUpload enforces the upload admission rules: declared size within
// the configured cap and the file extension on the allow-list when one is
// set. It never touches the network.
func ValidateUpload(name string, size int64, maxSize int64, allowedExtensions []string) error {
	if size < 0 {
		return errors.NewError("validate", errors.ErrValidation).
			WithMessage("declared size cannot be negative")
	}
	if maxSize > 0 && size > maxSize {
		return errors.NewError("validate", errors.ErrValidation).
			WithMessage(fmt.Sprintf("file size %d exceeds maximum %d", size, maxSize))
	}
	if len(allowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			return errors.NewError("validate", errors.ErrValidation).
				WithMessage(fmt.Sprintf("file %q has no extension; allowed: %s", name, strings.Join(allowedExtensions, ", ")))
		}
		allowed := false
		for _, a := range allowedExtensions {
			if strings.EqualFold(strings.TrimPrefix(a, "."), strings.TrimPrefix(ext, ".")) {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.NewError("validate", errors.ErrValidation).
				WithMessage(fmt.Sprintf("extension %q is not allowed; allowed: %s", ext, strings.Join(allowedExtensions, ", ")))
		}
	}
	return nil
}
