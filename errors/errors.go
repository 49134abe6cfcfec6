// Package errors provides error types and handling for blobvault operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a store operation error with context about the operation
// that failed. It wraps the underlying AWS SDK error with additional context
// for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "delete", "rename")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("blobvault.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("blobvault.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("blobvault.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("blobvault.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("blobvault: object not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("blobvault: invalid input")

	// ErrValidation indicates the upload was rejected before any network
	// interaction (disallowed extension, size over the hard cap)
	ErrValidation = errors.New("blobvault: upload validation failed")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("blobvault: invalid object key")

	// ErrUploadFailed indicates a transfer failed partway through
	ErrUploadFailed = errors.New("blobvault: upload failed")
)

// SessionError reports that the store refused to open a multipart session.
// No parts were attempted and there is nothing to abort.
type SessionError struct {
	Key string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("blobvault: create session for %s: %v", e.Key, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// PartUploadError aggregates every failed part of a multipart session.
// The session is aborted before this error is surfaced; partial successes
// among the other parts are discarded.
type PartUploadError struct {
	Key string

	// FailedParts holds the 1-based part numbers that failed, ascending.
	FailedParts []int32

	// Causes holds the underlying error per failed part, parallel to FailedParts.
	Causes []error
}

func (e *PartUploadError) Error() string {
	return fmt.Sprintf("blobvault: upload of %s failed at parts %v: %v",
		e.Key, e.FailedParts, errors.Join(e.Causes...))
}

func (e *PartUploadError) Unwrap() error { return ErrUploadFailed }

// CommitError reports that every part succeeded but the completion call
// failed. The store may hold an orphaned session; completion is not retried
// automatically because the store may have already finalized the object.
type CommitError struct {
	Key       string
	SessionID string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("blobvault: commit of %s (session %s) failed: %v", e.Key, e.SessionID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// SizeMismatchError reports that the byte source yielded a different number
// of bytes than the upload declared. The session is aborted and nothing is
// committed.
type SizeMismatchError struct {
	Key      string
	Declared int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("blobvault: object %s declared %d bytes but source yielded %d",
		e.Key, e.Declared, e.Actual)
}

func (e *SizeMismatchError) Unwrap() error { return ErrUploadFailed }

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsValidation checks if an error indicates the input was rejected pre-flight.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
