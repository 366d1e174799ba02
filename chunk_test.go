package blake3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkStatePhases(t *testing.T) {
	c := newChunkState(&iv, 0, 0)
	assert.Equal(t, chunkEmpty, c.phase)
	c.update(nil)
	assert.Equal(t, chunkEmpty, c.phase)

	c.update(testInput(100))
	assert.Equal(t, chunkAccumulating, c.phase)
	assert.Equal(t, 100, c.len())

	n := c.node()
	assert.Equal(t, chunkFinalized, c.phase)
	assert.Equal(t, uint32(36), n.blockLen)
	assert.Equal(t, uint32(flagChunkEnd), n.flags, "chunk start belongs to the first block only")
	assert.Panics(t, func() { c.update([]byte{1}) })
}

func TestChunkStateFlags(t *testing.T) {
	for _, size := range []int{0, 1, 64} {
		c := newChunkState(&iv, 0, flagKeyedHash)
		c.update(testInput(size))
		n := c.node()
		assert.Equal(t, uint32(flagKeyedHash|flagChunkStart|flagChunkEnd), n.flags, "size %d", size)
		assert.Equal(t, uint32(size), n.blockLen)
	}

	c := newChunkState(&iv, 3, 0)
	c.update(testInput(chunkSize))
	n := c.node()
	assert.Equal(t, uint32(blockSize), n.blockLen, "a full last block keeps its length")
	assert.Equal(t, uint64(3), n.counter)
}

func TestChunkStateIncremental(t *testing.T) {
	in := testInput(chunkSize)
	for _, size := range []int{1, 63, 64, 65, 500, 1023, 1024} {
		want := compressChunk(in[:size], &iv, 7, 0)
		for _, step := range []int{1, 3, 64, 100} {
			c := newChunkState(&iv, 7, 0)
			for p := in[:size]; len(p) > 0; {
				n := step
				if n > len(p) {
					n = len(p)
				}
				c.update(p[:n])
				p = p[n:]
			}
			assert.Equal(t, want, c.node(), "size %d step %d", size, step)
		}
	}
}

func TestChunkStateMisuse(t *testing.T) {
	assert.Panics(t, func() {
		c := newChunkState(&iv, 0, 0)
		c.update(testInput(chunkSize + 1))
	})
	assert.Panics(t, func() {
		c := newChunkState(&iv, 1, 0)
		c.node()
	})
	assert.NotPanics(t, func() {
		c := newChunkState(&iv, 0, 0)
		c.node()
	})
}
