// Package testutil provides mock implementations for testing.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/internal/gateway"
	"github.com/stackline-io/blobvault/internal/s3api"
)

// MockS3Client is a configurable mock of the S3 API surface. Set only the
// function fields a test needs; unset operations fail loudly.
type MockS3Client struct {
	PutObjectFunc               func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObjectFunc               func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjectFunc            func(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjectsFunc           func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2Func           func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObjectFunc              func(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObjectFunc              func(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateMultipartUploadFunc   func(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUploadFunc func(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

var _ s3api.S3API = (*MockS3Client)(nil)

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("PutObject not mocked")
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("GetObject not mocked")
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.DeleteObjectFunc != nil {
		return m.DeleteObjectFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("DeleteObject not mocked")
}

func (m *MockS3Client) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	if m.DeleteObjectsFunc != nil {
		return m.DeleteObjectsFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("DeleteObjects not mocked")
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.ListObjectsV2Func != nil {
		return m.ListObjectsV2Func(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("ListObjectsV2 not mocked")
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("HeadObject not mocked")
}

func (m *MockS3Client) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	if m.CopyObjectFunc != nil {
		return m.CopyObjectFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("CopyObject not mocked")
}

func (m *MockS3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("CreateMultipartUpload not mocked")
}

func (m *MockS3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("UploadPart not mocked")
}

func (m *MockS3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("CompleteMultipartUpload not mocked")
}

func (m *MockS3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("AbortMultipartUpload not mocked")
}

// MockStore is a configurable mock of the object-store boundary with built-in
// bookkeeping for session lifecycle assertions. Unset function fields fall
// back to recording no-ops that succeed.
type MockStore struct {
	CreateSessionFunc func(ctx context.Context, spec blobtypes.UploadSpec) (string, error)
	PutPartFunc       func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error)
	CompleteFunc      func(ctx context.Context, key, sessionID string, parts []blobtypes.CompletedPart) (string, error)
	AbortFunc         func(ctx context.Context, key, sessionID string) error
	PutWholeFunc      func(ctx context.Context, spec blobtypes.UploadSpec, data []byte) (string, error)

	mu            sync.Mutex
	createCalls   int
	completeCalls int
	abortCalls    int
	putWholeCalls int
	partNumbers   []int32
	manifest      []blobtypes.CompletedPart
	inFlight      int
	maxInFlight   int
}

var _ gateway.ObjectStore = (*MockStore)(nil)

func (m *MockStore) CreateSession(ctx context.Context, spec blobtypes.UploadSpec) (string, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, spec)
	}
	return "session-1", nil
}

func (m *MockStore) PutPart(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
	m.mu.Lock()
	m.partNumbers = append(m.partNumbers, partNumber)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.PutPartFunc != nil {
		return m.PutPartFunc(ctx, key, sessionID, partNumber, data)
	}
	return fmt.Sprintf("etag-%d", partNumber), nil
}

func (m *MockStore) Complete(ctx context.Context, key, sessionID string, parts []blobtypes.CompletedPart) (string, error) {
	m.mu.Lock()
	m.completeCalls++
	m.manifest = append([]blobtypes.CompletedPart(nil), parts...)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, key, sessionID, parts)
	}
	return "etag-final", nil
}

func (m *MockStore) Abort(ctx context.Context, key, sessionID string) error {
	m.mu.Lock()
	m.abortCalls++
	m.mu.Unlock()
	if m.AbortFunc != nil {
		return m.AbortFunc(ctx, key, sessionID)
	}
	return nil
}

func (m *MockStore) PutWhole(ctx context.Context, spec blobtypes.UploadSpec, data []byte) (string, error) {
	m.mu.Lock()
	m.putWholeCalls++
	m.mu.Unlock()
	if m.PutWholeFunc != nil {
		return m.PutWholeFunc(ctx, spec, data)
	}
	return "etag-whole", nil
}

// CreateCalls reports how many sessions were opened.
func (m *MockStore) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// CompleteCalls reports how many commit attempts were made.
func (m *MockStore) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// AbortCalls reports how many abort attempts were made.
func (m *MockStore) AbortCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abortCalls
}

// PutWholeCalls reports how many single-shot puts were made.
func (m *MockStore) PutWholeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putWholeCalls
}

// PartNumbers returns the part numbers in the order they were attempted.
func (m *MockStore) PartNumbers() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int32(nil), m.partNumbers...)
}

// Manifest returns the parts passed to the last Complete call.
func (m *MockStore) Manifest() []blobtypes.CompletedPart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]blobtypes.CompletedPart(nil), m.manifest...)
}

// MaxInFlight returns the high-water mark of simultaneous PutPart calls.
func (m *MockStore) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}
