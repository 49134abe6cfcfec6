// Package multipart drives multipart upload sessions to a single atomic
// commit or a clean abort.
//
// One orchestrator covers both transfer modes: the worker-pool bound comes
// from the chunk plan, and a concurrency of 1 is the streaming case. Parts
// are read one chunk at a time — never more than one chunk ahead of the
// workers — so peak memory is bounded by concurrency+1 chunks regardless of
// object size.
package multipart

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/gateway"
	"github.com/stackline-io/blobvault/internal/metrics"
	"github.com/stackline-io/blobvault/internal/pool"
)

// Orchestrator owns one multipart session per Run invocation, from the
// create-session call until a terminal complete or abort. Session state is
// never shared across invocations.
type Orchestrator struct {
	store gateway.ObjectStore
	log   *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given store boundary.
func NewOrchestrator(store gateway.ObjectStore, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store: store,
		log:   log,
	}
}

// partOutcome carries one part's result or failure from a worker to the
// collector.
type partOutcome struct {
	partNumber int32
	result     blobtypes.PartResult
	err        error
	skipped    bool
}

// Run uploads src as plan.TotalParts parts under one session and commits
// them atomically. Any part failure aborts the whole session (best-effort)
// and surfaces a single aggregate error; there is no partial commit. A
// completion failure after full part success is surfaced as CommitError
// without aborting, since the store may already have finalized the object.
func (o *Orchestrator) Run(
	ctx context.Context,
	spec blobtypes.UploadSpec,
	plan blobtypes.ChunkPlan,
	src io.Reader,
) (*blobtypes.UploadOutcome, error) {
	start := time.Now()

	sessionID, err := o.store.CreateSession(ctx, spec)
	if err != nil {
		return nil, &errors.SessionError{Key: spec.Key, Err: err}
	}
	session := blobtypes.MultipartSession{
		ID:   sessionID,
		Key:  spec.Key,
		Plan: plan,
	}

	o.log.Debug("multipart session opened",
		zap.String("key", spec.Key),
		zap.String("session", sessionID),
		zap.String("strategy", string(plan.Strategy)),
		zap.Int("parts", plan.TotalParts),
		zap.Int("concurrency", plan.Concurrency))

	results, err := o.uploadParts(ctx, session, src)
	if err != nil {
		o.abort(ctx, session)
		return nil, err
	}

	manifest, err := buildManifest(results, plan.TotalParts)
	if err != nil {
		o.abort(ctx, session)
		return nil, err
	}

	etag, err := o.store.Complete(ctx, spec.Key, sessionID, manifest)
	if err != nil {
		// The store may hold an orphaned session here. It is reported, not
		// aborted: the parts cannot be re-sent without knowing whether the
		// store already finalized them internally.
		return nil, &errors.CommitError{Key: spec.Key, SessionID: sessionID, Err: err}
	}

	return &blobtypes.UploadOutcome{
		Key:      spec.Key,
		ETag:     etag,
		Size:     plan.TotalSize,
		Strategy: plan.Strategy,
		Duration: time.Since(start),
	}, nil
}

// uploadParts partitions src into the planned parts and drives them through
// a worker pool sized at the plan's concurrency. It is a join, not a race:
// every dispatched part resolves before any commit/abort decision is made.
func (o *Orchestrator) uploadParts(
	ctx context.Context,
	session blobtypes.MultipartSession,
	src io.Reader,
) ([]blobtypes.PartResult, error) {
	plan := session.Plan
	concurrency := plan.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	// Streaming mode: a single failure voids the session, so dispatching the
	// remaining parts buys nothing.
	haltOnFailure := concurrency == 1

	type job struct {
		partNumber int32
		data       []byte
	}

	buffers := pool.NewChunkPool(plan.ChunkSize)
	jobs := make(chan job)
	outcomes := make(chan partOutcome, plan.TotalParts)
	srcErr := make(chan error, 1)

	var failed atomic.Bool

	// Producer: reads one chunk at a time. The unbuffered jobs channel keeps
	// it at most one chunk ahead of the workers.
	go func() {
		defer close(jobs)

		var read int64
		for part := 1; part <= plan.TotalParts; part++ {
			if ctx.Err() != nil {
				srcErr <- ctx.Err()
				return
			}
			if haltOnFailure && failed.Load() {
				return
			}

			size := plan.ChunkSize
			if part == plan.TotalParts {
				size = plan.FinalPartSize
			}

			buf := buffers.Get()[:size]
			n, err := io.ReadFull(src, buf)
			read += int64(n)
			if err != nil {
				buffers.Put(buf[:cap(buf)])
				srcErr <- &errors.SizeMismatchError{
					Key:      session.Key,
					Declared: plan.TotalSize,
					Actual:   read,
				}
				return
			}

			select {
			case jobs <- job{partNumber: int32(part), data: buf}:
			case <-ctx.Done():
				buffers.Put(buf[:cap(buf)])
				srcErr <- ctx.Err()
				return
			}
		}

		// Declared-size defense: the source must be exhausted once the plan
		// is fully read.
		var probe [1]byte
		if n, _ := src.Read(probe[:]); n > 0 {
			srcErr <- &errors.SizeMismatchError{
				Key:      session.Key,
				Declared: plan.TotalSize,
				Actual:   read + int64(n),
			}
		}
	}()

	// Workers: the pool size is the strict in-flight bound.
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if haltOnFailure && failed.Load() {
					buffers.Put(j.data[:cap(j.data)])
					outcomes <- partOutcome{partNumber: j.partNumber, skipped: true}
					continue
				}

				result, err := o.uploadPart(ctx, session, j.partNumber, j.data)
				buffers.Put(j.data[:cap(j.data)])
				if err != nil {
					failed.Store(true)
					outcomes <- partOutcome{partNumber: j.partNumber, err: err}
					continue
				}
				outcomes <- partOutcome{partNumber: j.partNumber, result: result}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Full join: collect every outcome before deciding.
	var (
		succeeded   []blobtypes.PartResult
		failedParts []int32
		causes      []error
	)
	for out := range outcomes {
		switch {
		case out.skipped:
		case out.err != nil:
			failedParts = append(failedParts, out.partNumber)
			causes = append(causes, out.err)
		default:
			succeeded = append(succeeded, out.result)
		}
	}

	var sourceFailure error
	select {
	case sourceFailure = <-srcErr:
	default:
	}

	if len(failedParts) > 0 {
		sortFailures(failedParts, causes)
		return nil, &errors.PartUploadError{
			Key:         session.Key,
			FailedParts: failedParts,
			Causes:      causes,
		}
	}
	if sourceFailure != nil {
		return nil, sourceFailure
	}
	if len(succeeded) != plan.TotalParts {
		return nil, fmt.Errorf("blobvault: session %s resolved %d of %d parts",
			session.ID, len(succeeded), plan.TotalParts)
	}
	return succeeded, nil
}

// uploadPart sends one part and measures its timing. The observation is
// advisory and never affects control flow.
func (o *Orchestrator) uploadPart(
	ctx context.Context,
	session blobtypes.MultipartSession,
	partNumber int32,
	data []byte,
) (blobtypes.PartResult, error) {
	start := time.Now()
	etag, err := o.store.PutPart(ctx, session.Key, session.ID, partNumber, data)
	elapsed := time.Since(start)
	if err != nil {
		metrics.PartFailures.Inc()
		return blobtypes.PartResult{}, fmt.Errorf("part %d: %w", partNumber, err)
	}

	metrics.PartUploadDuration.Observe(elapsed.Seconds())
	metrics.BytesUploaded.Add(float64(len(data)))
	o.log.Debug("part uploaded",
		zap.String("key", session.Key),
		zap.Int32("part", partNumber),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", elapsed))

	return blobtypes.PartResult{
		PartNumber: partNumber,
		ETag:       etag,
		Size:       int64(len(data)),
		Duration:   elapsed,
	}, nil
}

// abort discards the session, best-effort. It still runs when the caller's
// context is already cancelled so an open session is not leaked; its own
// failure is logged and swallowed — store lifecycle cleanup reaps orphans.
func (o *Orchestrator) abort(ctx context.Context, session blobtypes.MultipartSession) {
	if err := o.store.Abort(context.WithoutCancel(ctx), session.Key, session.ID); err != nil {
		o.log.Warn("abort failed",
			zap.String("key", session.Key),
			zap.String("session", session.ID),
			zap.Error(err))
	}
}

// buildManifest sorts results by part number — the only ordering the commit
// call requires regardless of completion order — and verifies the numbering
// is gap-free against the plan.
func buildManifest(results []blobtypes.PartResult, totalParts int) ([]blobtypes.CompletedPart, error) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].PartNumber < results[j].PartNumber
	})

	manifest := make([]blobtypes.CompletedPart, len(results))
	for i, r := range results {
		if r.PartNumber != int32(i+1) {
			return nil, fmt.Errorf("blobvault: manifest gap at part %d of %d", i+1, totalParts)
		}
		manifest[i] = blobtypes.CompletedPart{
			PartNumber: r.PartNumber,
			ETag:       r.ETag,
		}
	}
	return manifest, nil
}

// sortFailures orders failed part numbers ascending, keeping causes aligned.
func sortFailures(parts []int32, causes []error) {
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return parts[order[i]] < parts[order[j]] })

	sortedParts := make([]int32, len(parts))
	sortedCauses := make([]error, len(causes))
	for i, idx := range order {
		sortedParts[i] = parts[idx]
		sortedCauses[i] = causes[idx]
	}
	copy(parts, sortedParts)
	copy(causes, sortedCauses)
}
