// Package pool provides memory management optimizations for part transfers.
// Chunk buffers are reused across parts and uploads to reduce allocations.
package pool

import (
	"sync"
)

// ChunkPool hands out fixed-size part buffers. One pool serves one chunk
// size; plans with different chunk sizes get their own pool.
type ChunkPool struct {
	size int
	pool sync.Pool
}

// NewChunkPool creates a pool of buffers of exactly size bytes.
func NewChunkPool(size int64) *ChunkPool {
	n := int(size)
	return &ChunkPool{
		size: n,
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, n)
				return &buf
			},
		},
	}
}

// Get returns a buffer of the pool's chunk size. The caller is responsible
// for calling Put once the buffer is no longer referenced.
func (p *ChunkPool) Get() []byte {
	bufPtr := p.pool.Get().(*[]byte)
	return (*bufPtr)[:p.size]
}

// Put returns a buffer to the pool. Buffers of a different capacity are
// dropped rather than pooled.
func (p *ChunkPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}
