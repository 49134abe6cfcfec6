// Package planner decides, per upload, how a file is split into parts and how
// many parts are kept in flight. Classification is pure: same size and tuning
// always yield the same plan.
package planner

import (
	"github.com/stackline-io/blobvault/blobtypes"
)

// Classify maps a declared object size onto a chunk plan: strategy, chunk
// size, part count and concurrency. Any non-negative size is valid; size 0
// uses the single-shot strategy with an empty body.
func Classify(size int64, tuning blobtypes.TransferTuning) blobtypes.ChunkPlan {
	t := tuning.Normalize()

	if size < t.MultipartThreshold {
		return blobtypes.ChunkPlan{
			Strategy:      blobtypes.StrategySingleShot,
			TotalSize:     size,
			ChunkSize:     size,
			TotalParts:    1,
			FinalPartSize: size,
			Concurrency:   1,
		}
	}

	chunkSize := chunkSizeFor(size, t)
	totalParts := int((size + chunkSize - 1) / chunkSize)
	finalPart := size - chunkSize*int64(totalParts-1)

	plan := blobtypes.ChunkPlan{
		TotalSize:     size,
		ChunkSize:     chunkSize,
		TotalParts:    totalParts,
		FinalPartSize: finalPart,
	}

	if size >= t.StreamingThreshold {
		plan.Strategy = blobtypes.StrategyStreaming
		plan.Concurrency = 1
		return plan
	}

	plan.Strategy = blobtypes.StrategyConcurrent
	plan.Concurrency = concurrencyFor(totalParts, t)
	return plan
}

// chunkSizeFor picks the chunk size band for the object size. Tiering keeps
// the part count in a bounded range: small chunks for small objects avoid
// memory pressure, large chunks for huge objects avoid per-part overhead.
func chunkSizeFor(size int64, t blobtypes.TransferTuning) int64 {
	switch {
	case size < t.SmallObjectLimit:
		return t.ChunkSizeSmall
	case size < t.MediumObjectLimit:
		return t.ChunkSizeMedium
	default:
		return t.ChunkSizeLarge
	}
}

// concurrencyFor is the monotonic step ladder from part count to worker
// count: too few parts to bother, full parallelism for small-to-medium jobs,
// a fixed moderate level past that, and the configured maximum as the clamp.
func concurrencyFor(totalParts int, t blobtypes.TransferTuning) int {
	var c int
	switch {
	case totalParts < t.MinChunksForConcurrency:
		c = 1
	case totalParts <= t.FullConcurrencyCeiling:
		c = totalParts
	case totalParts <= t.LimitedConcurrencyCeiling:
		c = t.LimitedConcurrencyValue
	default:
		c = t.MaxConcurrentUploads
	}
	if c > t.MaxConcurrentUploads {
		c = t.MaxConcurrentUploads
	}
	if c < 1 {
		c = 1
	}
	return c
}
