package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkPool_GetReturnsFullLength(t *testing.T) {
	p := NewChunkPool(64)

	buf := p.Get()
	assert.Len(t, buf, 64)
	assert.Equal(t, 64, cap(buf))
}

func TestChunkPool_RoundTrip(t *testing.T) {
	p := NewChunkPool(32)

	buf := p.Get()
	buf[0] = 0xff
	p.Put(buf)

	again := p.Get()
	assert.Len(t, again, 32)
}

func TestChunkPool_DropsWrongCapacity(t *testing.T) {
	p := NewChunkPool(32)

	// Foreign buffers must not poison the pool.
	p.Put(make([]byte, 16))

	buf := p.Get()
	assert.Len(t, buf, 32)
}

func TestChunkPool_AcceptsResliced(t *testing.T) {
	p := NewChunkPool(32)

	buf := p.Get()
	short := buf[:10]
	p.Put(short[:cap(short)])

	again := p.Get()
	assert.Len(t, again, 32)
}
