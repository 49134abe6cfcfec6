package multipart

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/testutil"
)

func concurrentPlan(totalSize, chunkSize int64, concurrency int) blobtypes.ChunkPlan {
	totalParts := int((totalSize + chunkSize - 1) / chunkSize)
	return blobtypes.ChunkPlan{
		Strategy:      blobtypes.StrategyConcurrent,
		TotalSize:     totalSize,
		ChunkSize:     chunkSize,
		TotalParts:    totalParts,
		FinalPartSize: totalSize - chunkSize*int64(totalParts-1),
		Concurrency:   concurrency,
	}
}

func streamingPlan(totalSize, chunkSize int64) blobtypes.ChunkPlan {
	plan := concurrentPlan(totalSize, chunkSize, 1)
	plan.Strategy = blobtypes.StrategyStreaming
	return plan
}

func sourceOf(size int64) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestRun_ConcurrentSuccess(t *testing.T) {
	store := &testutil.MockStore{}
	orch := NewOrchestrator(store, nil)

	src := sourceOf(100)
	plan := concurrentPlan(100, 32, 4)
	require.Equal(t, 4, plan.TotalParts)

	outcome, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "data/blob.bin", TotalSize: 100}, plan, bytes.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "data/blob.bin", outcome.Key)
	assert.Equal(t, "etag-final", outcome.ETag)
	assert.Equal(t, int64(100), outcome.Size)
	assert.Equal(t, blobtypes.StrategyConcurrent, outcome.Strategy)

	assert.Equal(t, 1, store.CreateCalls())
	assert.Equal(t, 1, store.CompleteCalls())
	assert.Zero(t, store.AbortCalls())
	assert.Len(t, store.PartNumbers(), 4)
}

func TestRun_ReassemblesSourceExactly(t *testing.T) {
	var mu sync.Mutex
	parts := make(map[int32][]byte)

	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			mu.Lock()
			parts[partNumber] = append([]byte(nil), data...)
			mu.Unlock()
			return fmt.Sprintf("etag-%d", partNumber), nil
		},
	}
	orch := NewOrchestrator(store, nil)

	src := sourceOf(10)
	plan := concurrentPlan(10, 3, 4)
	require.Equal(t, 4, plan.TotalParts)
	require.Equal(t, int64(1), plan.FinalPartSize)

	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 10}, plan, bytes.NewReader(src))
	require.NoError(t, err)

	var reassembled []byte
	for p := int32(1); p <= 4; p++ {
		reassembled = append(reassembled, parts[p]...)
	}
	assert.Equal(t, src, reassembled)
}

// The commit manifest must be sorted by part number even when later parts
// finish first.
func TestRun_ManifestSortedUnderShuffledCompletion(t *testing.T) {
	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			// Later parts finish earlier.
			time.Sleep(time.Duration(5-partNumber) * 10 * time.Millisecond)
			return fmt.Sprintf("etag-%d", partNumber), nil
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(16, 4, 4)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 16}, plan, bytes.NewReader(sourceOf(16)))
	require.NoError(t, err)

	manifest := store.Manifest()
	require.Len(t, manifest, 4)
	for i, part := range manifest {
		assert.Equal(t, int32(i+1), part.PartNumber)
		assert.Equal(t, fmt.Sprintf("etag-%d", part.PartNumber), part.ETag)
	}
}

func TestRun_ConcurrencyNeverExceedsPlan(t *testing.T) {
	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			time.Sleep(10 * time.Millisecond)
			return "etag", nil
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(24, 4, 2)
	require.Equal(t, 6, plan.TotalParts)

	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 24}, plan, bytes.NewReader(sourceOf(24)))
	require.NoError(t, err)

	assert.LessOrEqual(t, store.MaxInFlight(), 2)
}

// A failed part must not stop the remaining parts from being attempted, but
// the session must end in exactly one abort and no commit, with the failure
// naming the part.
func TestRun_PartFailureAbortsAfterFullJoin(t *testing.T) {
	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			if partNumber == 3 {
				return "", stderrors.New("connection reset")
			}
			return fmt.Sprintf("etag-%d", partNumber), nil
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(50, 10, 5)
	require.Equal(t, 5, plan.TotalParts)

	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 50}, plan, bytes.NewReader(sourceOf(50)))
	require.Error(t, err)

	var partErr *errors.PartUploadError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, []int32{3}, partErr.FailedParts)
	assert.True(t, stderrors.Is(err, errors.ErrUploadFailed))
	assert.ErrorContains(t, err, "connection reset")

	attempted := store.PartNumbers()
	assert.Len(t, attempted, 5, "every part must be attempted despite the failure")

	assert.Equal(t, 1, store.AbortCalls())
	assert.Zero(t, store.CompleteCalls())
}

func TestRun_MultiplePartFailuresAggregated(t *testing.T) {
	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			if partNumber == 2 || partNumber == 4 {
				return "", fmt.Errorf("part %d refused", partNumber)
			}
			return "etag", nil
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(50, 10, 5)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 50}, plan, bytes.NewReader(sourceOf(50)))

	var partErr *errors.PartUploadError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, []int32{2, 4}, partErr.FailedParts)
	assert.Len(t, partErr.Causes, 2)
	assert.Equal(t, 1, store.AbortCalls())
}

func TestRun_StreamingUploadsInStrictSequence(t *testing.T) {
	store := &testutil.MockStore{}
	orch := NewOrchestrator(store, nil)

	plan := streamingPlan(20, 4)
	require.Equal(t, 5, plan.TotalParts)

	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(20)))
	require.NoError(t, err)

	assert.Equal(t, []int32{1, 2, 3, 4, 5}, store.PartNumbers())
	assert.Equal(t, 1, store.MaxInFlight())
}

// In streaming mode a failure halts dispatch: parts after the failed one are
// never sent.
func TestRun_StreamingHaltsOnFirstFailure(t *testing.T) {
	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			if partNumber == 2 {
				return "", stderrors.New("timeout")
			}
			return "etag", nil
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := streamingPlan(20, 4)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(20)))

	var partErr *errors.PartUploadError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, []int32{2}, partErr.FailedParts)

	assert.Equal(t, []int32{1, 2}, store.PartNumbers(), "no part after the failure may be sent")
	assert.Equal(t, 1, store.AbortCalls())
	assert.Zero(t, store.CompleteCalls())
}

func TestRun_SessionCreationFailure(t *testing.T) {
	store := &testutil.MockStore{
		CreateSessionFunc: func(ctx context.Context, spec blobtypes.UploadSpec) (string, error) {
			return "", stderrors.New("access denied")
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(20, 4, 2)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(20)))

	var sessionErr *errors.SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, "k", sessionErr.Key)

	assert.Empty(t, store.PartNumbers(), "no part may be attempted without a session")
	assert.Zero(t, store.AbortCalls(), "there is no session to abort")
}

// A failed commit after full part success is surfaced as-is: the orchestrator
// must not abort, because the store may already have finalized the object.
func TestRun_CommitFailureDoesNotAbort(t *testing.T) {
	store := &testutil.MockStore{
		CompleteFunc: func(ctx context.Context, key, sessionID string, parts []blobtypes.CompletedPart) (string, error) {
			return "", stderrors.New("internal error")
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(20, 4, 2)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(20)))

	var commitErr *errors.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "k", commitErr.Key)
	assert.Equal(t, "session-1", commitErr.SessionID)

	assert.Zero(t, store.AbortCalls())
}

func TestRun_ShortSourceAbortsWithSizeMismatch(t *testing.T) {
	store := &testutil.MockStore{}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(20, 4, 2)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(13)))

	var mismatch *errors.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(20), mismatch.Declared)
	assert.Equal(t, int64(13), mismatch.Actual)

	assert.Equal(t, 1, store.AbortCalls())
	assert.Zero(t, store.CompleteCalls())
}

func TestRun_OverlongSourceAbortsWithSizeMismatch(t *testing.T) {
	store := &testutil.MockStore{}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(20, 4, 2)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(30)))

	var mismatch *errors.SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(20), mismatch.Declared)
	assert.Greater(t, mismatch.Actual, mismatch.Declared)

	assert.Equal(t, 1, store.AbortCalls())
	assert.Zero(t, store.CompleteCalls())
}

func TestRun_CancelledContextStillAborts(t *testing.T) {
	store := &testutil.MockStore{}
	orch := NewOrchestrator(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := concurrentPlan(20, 4, 2)
	_, err := orch.Run(ctx, blobtypes.UploadSpec{Key: "k", TotalSize: 20}, plan, bytes.NewReader(sourceOf(20)))

	require.Error(t, err)
	assert.Equal(t, 1, store.AbortCalls(), "cancellation must not leak the open session")
	assert.Zero(t, store.CompleteCalls())
}

func TestRun_AbortFailureIsSwallowed(t *testing.T) {
	store := &testutil.MockStore{
		PutPartFunc: func(ctx context.Context, key, sessionID string, partNumber int32, data []byte) (string, error) {
			return "", stderrors.New("boom")
		},
		AbortFunc: func(ctx context.Context, key, sessionID string) error {
			return stderrors.New("abort also failed")
		},
	}
	orch := NewOrchestrator(store, nil)

	plan := concurrentPlan(8, 4, 2)
	_, err := orch.Run(context.Background(), blobtypes.UploadSpec{Key: "k", TotalSize: 8}, plan, bytes.NewReader(sourceOf(8)))

	var partErr *errors.PartUploadError
	require.ErrorAs(t, err, &partErr, "the part failure wins; the abort failure is logged only")
	assert.NotContains(t, err.Error(), "abort also failed")
}
