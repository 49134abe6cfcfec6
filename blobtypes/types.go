// Package blobtypes provides shared type definitions for the blobvault module.
package blobtypes

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"
)

// Strategy identifies how an upload is transferred to the store.
type Strategy string

// Upload strategies chosen by the size classifier.
const (
	// StrategySingleShot transfers the whole object in one request, no session.
	StrategySingleShot Strategy = "single-shot"

	// StrategyConcurrent splits the object into parts uploaded by a bounded
	// worker pool under one multipart session.
	StrategyConcurrent Strategy = "concurrent-multipart"

	// StrategyStreaming uploads parts strictly in sequence, one in flight at
	// a time, bounding peak memory to one chunk.
	StrategyStreaming Strategy = "streaming-multipart"
)

// TransferTuning holds every knob the size classifier consults. Values are
// externally configurable; zero fields are filled from DefaultTuning by
// Normalize.
type TransferTuning struct {
	// MultipartThreshold is the size at and above which uploads use a
	// multipart session instead of a single PutObject.
	MultipartThreshold int64

	// StreamingThreshold is the size at and above which uploads switch to
	// strictly sequential part streaming.
	StreamingThreshold int64

	// SmallObjectLimit and MediumObjectLimit bound the chunk-size bands:
	// objects below SmallObjectLimit use ChunkSizeSmall, below
	// MediumObjectLimit use ChunkSizeMedium, everything else ChunkSizeLarge.
	SmallObjectLimit  int64
	MediumObjectLimit int64

	ChunkSizeSmall  int64
	ChunkSizeMedium int64
	ChunkSizeLarge  int64

	// MaxConcurrentUploads caps part-upload workers regardless of part count.
	MaxConcurrentUploads int

	// MinChunksForConcurrency is the part count below which parallelism buys
	// nothing and concurrency stays at 1.
	MinChunksForConcurrency int

	// FullConcurrencyCeiling is the part count up to which every part may be
	// in flight at once.
	FullConcurrencyCeiling int

	// LimitedConcurrencyCeiling is the part count up to which the fixed
	// LimitedConcurrencyValue is used; larger jobs clamp to
	// MaxConcurrentUploads.
	LimitedConcurrencyCeiling int
	LimitedConcurrencyValue   int
}

// DefaultTuning returns the tuning used when the caller configures nothing.
func DefaultTuning() TransferTuning {
	return TransferTuning{
		MultipartThreshold:        100 * 1024 * 1024,
		StreamingThreshold:        2 * 1024 * 1024 * 1024,
		SmallObjectLimit:          256 * 1024 * 1024,
		MediumObjectLimit:         1024 * 1024 * 1024,
		ChunkSizeSmall:            8 * 1024 * 1024,
		ChunkSizeMedium:           32 * 1024 * 1024,
		ChunkSizeLarge:            64 * 1024 * 1024,
		MaxConcurrentUploads:      10,
		MinChunksForConcurrency:   3,
		FullConcurrencyCeiling:    8,
		LimitedConcurrencyCeiling: 32,
		LimitedConcurrencyValue:   8,
	}
}

// Normalize fills zero fields from DefaultTuning so partially configured
// tunings stay usable.
func (t TransferTuning) Normalize() TransferTuning {
	d := DefaultTuning()
	if t.MultipartThreshold <= 0 {
		t.MultipartThreshold = d.MultipartThreshold
	}
	if t.StreamingThreshold <= 0 {
		t.StreamingThreshold = d.StreamingThreshold
	}
	if t.SmallObjectLimit <= 0 {
		t.SmallObjectLimit = d.SmallObjectLimit
	}
	if t.MediumObjectLimit <= 0 {
		t.MediumObjectLimit = d.MediumObjectLimit
	}
	if t.ChunkSizeSmall <= 0 {
		t.ChunkSizeSmall = d.ChunkSizeSmall
	}
	if t.ChunkSizeMedium <= 0 {
		t.ChunkSizeMedium = d.ChunkSizeMedium
	}
	if t.ChunkSizeLarge <= 0 {
		t.ChunkSizeLarge = d.ChunkSizeLarge
	}
	if t.MaxConcurrentUploads <= 0 {
		t.MaxConcurrentUploads = d.MaxConcurrentUploads
	}
	if t.MinChunksForConcurrency <= 0 {
		t.MinChunksForConcurrency = d.MinChunksForConcurrency
	}
	if t.FullConcurrencyCeiling <= 0 {
		t.FullConcurrencyCeiling = d.FullConcurrencyCeiling
	}
	if t.LimitedConcurrencyCeiling <= 0 {
		t.LimitedConcurrencyCeiling = d.LimitedConcurrencyCeiling
	}
	if t.LimitedConcurrencyValue <= 0 {
		t.LimitedConcurrencyValue = d.LimitedConcurrencyValue
	}
	return t
}

// UploadSpec describes one upload. It is created once at upload start and
// never mutated; each driver invocation owns its spec exclusively.
type UploadSpec struct {
	// Key is the object key the upload commits to.
	Key string

	// TotalSize is the declared size of the object in bytes.
	TotalSize int64

	// ContentType is the MIME type stored with the object.
	ContentType string

	// Owner optionally tags the upload with the owning user.
	Owner string

	// Metadata holds user-defined metadata stored with the object.
	Metadata map[string]string
}

// ChunkPlan is the classifier's decision for one upload: how to split the
// object and how many parts to keep in flight.
//
// Invariant for sized plans: ChunkSize*(TotalParts-1) < TotalSize <=
// ChunkSize*TotalParts, and Concurrency >= 1.
type ChunkPlan struct {
	Strategy Strategy

	// TotalSize echoes the classified size the plan was derived from.
	TotalSize int64

	// ChunkSize is the size of every part except possibly the last.
	ChunkSize int64

	// TotalParts is the number of parts the plan produces.
	TotalParts int

	// FinalPartSize is the size of the last, possibly short, part.
	FinalPartSize int64

	// Concurrency is the worker-pool bound for part uploads. Always 1 for
	// streaming plans.
	Concurrency int
}

// MultipartSession binds a set of part uploads to one eventual object. It is
// owned by exactly one orchestrator invocation from creation until a terminal
// Complete or Abort.
type MultipartSession struct {
	// ID is the opaque upload-session identifier issued by the store.
	ID string

	// Key is the object key the session commits to.
	Key string

	// Plan is the chunk plan the session was opened under.
	Plan ChunkPlan
}

// PartResult describes one successfully uploaded part.
type PartResult struct {
	// PartNumber is 1-based, unique and contiguous within the plan.
	PartNumber int32

	// ETag is the content hash returned by the store for the part.
	ETag string

	// Size is the byte length of the part.
	Size int64

	// Duration is how long the part upload took. Advisory only.
	Duration time.Duration
}

// CompletedPart is one entry of the commit manifest. Manifests are always
// sorted by ascending part number before the completion call.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// UploadOutcome is the terminal value returned to the caller on success.
type UploadOutcome struct {
	// Key is the object key that was uploaded.
	Key string

	// URL is the public URL of the object, when the endpoint is known.
	URL string

	// ETag is the store's entity tag for the committed object.
	ETag string

	// Size is the number of bytes transferred.
	Size int64

	// Strategy records which transfer path was taken.
	Strategy Strategy

	// Duration is the aggregate transfer time.
	Duration time.Duration
}

// ObjectInfo represents a stored object with its basic metadata.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	StorageClass string
}

// ObjectMetadata contains detailed metadata about a stored object.
type ObjectMetadata struct {
	// Name is the original file name recovered from upload metadata, falling
	// back to the key's base name.
	Name string

	ContentType   string
	ContentLength int64
	LastModified  time.Time
	ETag          string

	// Metadata contains user-defined metadata.
	Metadata map[string]string
}

// ListResult contains one page of a list operation.
type ListResult struct {
	Objects []ObjectInfo

	// IsTruncated indicates more objects remain after this page.
	IsTruncated bool

	// NextContinuationToken fetches the next page when IsTruncated is set.
	NextContinuationToken string
}

// DeleteResult contains the outcome of a batch delete.
type DeleteResult struct {
	Deleted []string
	Errors  []DeleteError
}

// DeleteError represents one object that failed to delete in a batch.
type DeleteError struct {
	Key     string
	Code    string
	Message string
}

// ClientConfig holds configuration for the blobvault client.
type ClientConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	MaxRetries      int
	CustomAWSConfig *aws.Config

	// MaxFileSize is the hard cap enforced before any network interaction.
	MaxFileSize int64

	// AllowedExtensions is the upload extension allow-list. Empty means any.
	AllowedExtensions []string

	Tuning TransferTuning

	Logger *zap.Logger
}

// UploadOptionConfig holds per-upload configuration via functional options.
type UploadOptionConfig struct {
	ContentType string
	Owner       string
	Metadata    map[string]string
}

// ListOptionConfig holds configuration for list operations via functional options.
type ListOptionConfig struct {
	Prefix            string
	MaxKeys           int32
	ContinuationToken string
}

// Option is a functional option for configuring the blobvault client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// ListOption is a functional option for configuring list operations.
	ListOption func(*ListOptionConfig)
)
