package blake3

type chunkPhase uint8

const (
	chunkEmpty chunkPhase = iota
	chunkAccumulating
	chunkFinalized
)

// chunkState incrementally hashes a single chunk of at most chunkSize bytes.
// A buffered block is only compressed once more input arrives, so the final
// block is always available to node.
type chunkState struct {
	cv       [8]uint32
	counter  uint64
	flags    uint32
	block    [blockSize]byte
	blockLen int
	blocks   int // blocks compressed so far
	phase    chunkPhase
}

func newChunkState(key *[8]uint32, counter uint64, flags uint32) chunkState {
	return chunkState{
		cv:      *key,
		counter: counter,
		flags:   flags,
	}
}

func (c *chunkState) len() int {
	return c.blocks*blockSize + c.blockLen
}

func (c *chunkState) startFlag() uint32 {
	if c.blocks == 0 {
		return flagChunkStart
	}
	return 0
}

func (c *chunkState) update(p []byte) {
	switch {
	case c.phase == chunkFinalized:
		panic("blake3: update of a finalized chunk")
	case c.len()+len(p) > chunkSize:
		panic("blake3: chunk overflow")
	}
	for len(p) > 0 {
		if c.blockLen == blockSize {
			var words [16]uint32
			bytesToWords(c.block, &words)
			c.cv = chainingValue(node{
				cv:       c.cv,
				block:    words,
				counter:  c.counter,
				blockLen: blockSize,
				flags:    c.flags | c.startFlag(),
			})
			c.blocks++
			c.block = [blockSize]byte{}
			c.blockLen = 0
		}
		n := copy(c.block[c.blockLen:], p)
		c.blockLen += n
		p = p[n:]
		c.phase = chunkAccumulating
	}
}

// node finalizes the chunk and returns its last block, ready to be compressed
// into the chunk's chaining value or, for a single-chunk message, the root
// output.
func (c *chunkState) node() node {
	if c.phase == chunkEmpty && c.counter != 0 {
		// only an empty message hashes an empty chunk
		panic("blake3: empty chunk after the start of the input")
	}
	c.phase = chunkFinalized
	n := node{
		cv:       c.cv,
		counter:  c.counter,
		blockLen: uint32(c.blockLen),
		flags:    c.flags | c.startFlag() | flagChunkEnd,
	}
	bytesToWords(c.block, &n.block)
	return n
}

func compressChunk(chunk []byte, key *[8]uint32, counter uint64, flags uint32) node {
	c := newChunkState(key, counter, flags)
	c.update(chunk)
	return c.node()
}
