package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackline-io/blobvault/blobtypes"
)

const (
	kib = int64(1024)
	mib = 1024 * kib
	gib = 1024 * mib
)

func TestClassify_StrategySelection(t *testing.T) {
	tuning := blobtypes.DefaultTuning()

	tests := []struct {
		name string
		size int64
		want blobtypes.Strategy
	}{
		{"zero byte object", 0, blobtypes.StrategySingleShot},
		{"small object", 10 * mib, blobtypes.StrategySingleShot},
		{"one byte below multipart threshold", tuning.MultipartThreshold - 1, blobtypes.StrategySingleShot},
		{"exactly multipart threshold", tuning.MultipartThreshold, blobtypes.StrategyConcurrent},
		{"medium object", 600 * mib, blobtypes.StrategyConcurrent},
		{"one byte below streaming threshold", tuning.StreamingThreshold - 1, blobtypes.StrategyConcurrent},
		{"exactly streaming threshold", tuning.StreamingThreshold, blobtypes.StrategyStreaming},
		{"huge object", 3 * gib, blobtypes.StrategyStreaming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Classify(tt.size, tuning)
			assert.Equal(t, tt.want, plan.Strategy)
			assert.Equal(t, tt.size, plan.TotalSize)
		})
	}
}

func TestClassify_ChunkSizeBands(t *testing.T) {
	tuning := blobtypes.DefaultTuning()

	tests := []struct {
		name      string
		size      int64
		wantChunk int64
	}{
		{"below small limit", 200 * mib, tuning.ChunkSizeSmall},
		{"below medium limit", 600 * mib, tuning.ChunkSizeMedium},
		{"above medium limit", 1536 * mib, tuning.ChunkSizeLarge},
		{"streaming sized", 3 * gib, tuning.ChunkSizeLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Classify(tt.size, tuning)
			assert.Equal(t, tt.wantChunk, plan.ChunkSize)
		})
	}
}

// The plan must account for every byte exactly once: all full parts plus the
// final part cover the total, and one part fewer would not.
func TestClassify_PlanInvariant(t *testing.T) {
	tuning := blobtypes.DefaultTuning()

	sizes := []int64{
		tuning.MultipartThreshold,
		tuning.MultipartThreshold + 1,
		200 * mib,
		200*mib + 1,
		256 * mib,
		600 * mib,
		gib - 1,
		gib,
		2 * gib,
		3*gib + 7,
		5 * gib,
	}

	for _, size := range sizes {
		plan := Classify(size, tuning)
		require.GreaterOrEqual(t, plan.TotalParts, 1, "size %d", size)

		covered := plan.ChunkSize*int64(plan.TotalParts-1) + plan.FinalPartSize
		assert.Equal(t, size, covered, "size %d: parts must cover the object exactly", size)
		assert.Greater(t, size, plan.ChunkSize*int64(plan.TotalParts-1), "size %d: one part fewer must not suffice", size)
		assert.LessOrEqual(t, size, plan.ChunkSize*int64(plan.TotalParts), "size %d: planned parts must suffice", size)
		assert.Greater(t, plan.FinalPartSize, int64(0), "size %d", size)
		assert.LessOrEqual(t, plan.FinalPartSize, plan.ChunkSize, "size %d", size)
		assert.GreaterOrEqual(t, plan.Concurrency, 1, "size %d", size)
	}
}

func TestClassify_EvenSplitHasFullFinalPart(t *testing.T) {
	tuning := blobtypes.DefaultTuning()

	// 200MiB in the small band splits evenly into 25 parts of 8MiB.
	plan := Classify(200*mib, tuning)
	assert.Equal(t, 25, plan.TotalParts)
	assert.Equal(t, plan.ChunkSize, plan.FinalPartSize)
}

func TestClassify_ConcurrencyLadder(t *testing.T) {
	tuning := blobtypes.DefaultTuning()

	tests := []struct {
		name string
		size int64
		want int
	}{
		// 100MiB at 8MiB chunks: 13 parts, limited band.
		{"limited band", tuning.MultipartThreshold, tuning.LimitedConcurrencyValue},
		// 600MiB at 32MiB chunks: 19 parts, limited band.
		{"medium object limited band", 600 * mib, tuning.LimitedConcurrencyValue},
		// 1.5GiB at 64MiB chunks: 24 parts, limited band.
		{"large object limited band", 1536 * mib, tuning.LimitedConcurrencyValue},
		// 1.9GiB at 64MiB chunks: 31 parts, still limited band.
		{"near streaming threshold", 1945 * mib, tuning.LimitedConcurrencyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Classify(tt.size, tuning)
			assert.Equal(t, tt.want, plan.Concurrency)
			assert.LessOrEqual(t, plan.Concurrency, tuning.MaxConcurrentUploads)
		})
	}
}

func TestClassify_ConcurrencyLadderIsMonotonic(t *testing.T) {
	tuning := blobtypes.TransferTuning{
		MultipartThreshold:        100,
		StreamingThreshold:        1 << 40,
		SmallObjectLimit:          1 << 40,
		ChunkSizeSmall:            100,
		MaxConcurrentUploads:      10,
		MinChunksForConcurrency:   3,
		FullConcurrencyCeiling:    8,
		LimitedConcurrencyCeiling: 32,
		LimitedConcurrencyValue:   8,
	}

	prevConcurrency := 0
	for parts := 1; parts <= 64; parts++ {
		plan := Classify(int64(parts)*100, tuning)
		require.Equal(t, parts, plan.TotalParts)
		assert.GreaterOrEqual(t, plan.Concurrency, prevConcurrency,
			"concurrency must never decrease as part count grows (parts=%d)", parts)
		prevConcurrency = plan.Concurrency
	}

	// Spot-check the step boundaries.
	assert.Equal(t, 1, Classify(200, tuning).Concurrency)     // 2 parts: below minimum
	assert.Equal(t, 3, Classify(300, tuning).Concurrency)     // 3 parts: full parallelism
	assert.Equal(t, 8, Classify(800, tuning).Concurrency)     // 8 parts: full ceiling
	assert.Equal(t, 8, Classify(900, tuning).Concurrency)     // 9 parts: limited value
	assert.Equal(t, 8, Classify(3200, tuning).Concurrency)    // 32 parts: limited ceiling
	assert.Equal(t, 10, Classify(3300, tuning).Concurrency)   // 33 parts: clamp to max
	assert.Equal(t, 10, Classify(1000*100, tuning).Concurrency)
}

func TestClassify_MediumBandSixWaySplit(t *testing.T) {
	tuning := blobtypes.TransferTuning{
		MultipartThreshold: 100 * mib,
		StreamingThreshold: 2 * gib,
		SmallObjectLimit:   256 * mib,
		MediumObjectLimit:  gib,
		ChunkSizeMedium:    100 * mib,
	}

	plan := Classify(600*mib, tuning)
	assert.Equal(t, blobtypes.StrategyConcurrent, plan.Strategy)
	assert.Equal(t, 6, plan.TotalParts)
	assert.Equal(t, 100*mib, plan.ChunkSize)
	assert.Equal(t, 100*mib, plan.FinalPartSize)
	assert.Equal(t, 6, plan.Concurrency)
}

func TestClassify_StreamingAlwaysSequential(t *testing.T) {
	tuning := blobtypes.DefaultTuning()

	for _, size := range []int64{2 * gib, 3 * gib, 10 * gib} {
		plan := Classify(size, tuning)
		require.Equal(t, blobtypes.StrategyStreaming, plan.Strategy)
		assert.Equal(t, 1, plan.Concurrency, "streaming plans never parallelize")
	}
}

func TestClassify_SingleShotPlanShape(t *testing.T) {
	plan := Classify(10*mib, blobtypes.DefaultTuning())

	assert.Equal(t, blobtypes.StrategySingleShot, plan.Strategy)
	assert.Equal(t, 1, plan.TotalParts)
	assert.Equal(t, 10*mib, plan.ChunkSize)
	assert.Equal(t, 10*mib, plan.FinalPartSize)
	assert.Equal(t, 1, plan.Concurrency)
}

func TestClassify_Deterministic(t *testing.T) {
	tuning := blobtypes.DefaultTuning()
	for _, size := range []int64{0, 50 * mib, 600 * mib, 3 * gib} {
		first := Classify(size, tuning)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Classify(size, tuning))
		}
	}
}

func TestClassify_ZeroTuningUsesDefaults(t *testing.T) {
	defaults := blobtypes.DefaultTuning()

	plan := Classify(600*mib, blobtypes.TransferTuning{})
	assert.Equal(t, blobtypes.StrategyConcurrent, plan.Strategy)
	assert.Equal(t, defaults.ChunkSizeMedium, plan.ChunkSize)
}
