package blake3

import (
	"bytes"
	"math/bits"
)

// msgPermutation is applied to the message words between rounds.
var msgPermutation = [16]uint8{2, 6, 3, 10, 7, 0, 4, 13, 1, 11, 12, 5, 9, 14, 15, 8}

// msgSchedule[r][i] is the index of the original message word consumed by the
// i'th G input of round r, i.e. msgPermutation applied r times.
var msgSchedule = func() (s [7][16]uint8) {
	for i := range s[0] {
		s[0][i] = uint8(i)
	}
	for r := 1; r < len(s); r++ {
		for i, p := range msgPermutation {
			s[r][i] = s[r-1][p]
		}
	}
	return
}()

// rotr32 rotates x right by n bits; n is taken modulo 32.
func rotr32(x uint32, n uint) uint32 {
	return bits.RotateLeft32(x, -int(n%32))
}

// g is the BLAKE3 quarter round. It mixes the two message words into the four
// state words and returns their new values.
func g(a, b, c, d, mx, my uint32) (uint32, uint32, uint32, uint32) {
	a += b + mx
	d = rotr32(d^a, 16)
	c += d
	b = rotr32(b^c, 12)
	a += b + my
	d = rotr32(d^a, 8)
	c += d
	b = rotr32(b^c, 7)
	return a, b, c, d
}

// mix applies g in place to s[a], s[b], s[c] and s[d]. No other word of s is
// touched.
func mix(s *[16]uint32, a, b, c, d int, mx, my uint32) {
	s[a], s[b], s[c], s[d] = g(s[a], s[b], s[c], s[d], mx, my)
}

func compressNodeGeneric(out *[16]uint32, n node) {
	// The state is a row-major 4x4 matrix: cv, iv, then counter, block length
	// and flags.
	s := [16]uint32{
		n.cv[0], n.cv[1], n.cv[2], n.cv[3],
		n.cv[4], n.cv[5], n.cv[6], n.cv[7],
		iv[0], iv[1], iv[2], iv[3],
		uint32(n.counter), uint32(n.counter >> 32), n.blockLen, n.flags,
	}
	m := &n.block
	for r := range msgSchedule {
		sched := &msgSchedule[r]
		// columns
		mix(&s, 0, 4, 8, 12, m[sched[0]], m[sched[1]])
		mix(&s, 1, 5, 9, 13, m[sched[2]], m[sched[3]])
		mix(&s, 2, 6, 10, 14, m[sched[4]], m[sched[5]])
		mix(&s, 3, 7, 11, 15, m[sched[6]], m[sched[7]])
		// diagonals
		mix(&s, 0, 5, 10, 15, m[sched[8]], m[sched[9]])
		mix(&s, 1, 6, 11, 12, m[sched[10]], m[sched[11]])
		mix(&s, 2, 7, 8, 13, m[sched[12]], m[sched[13]])
		mix(&s, 3, 4, 9, 14, m[sched[14]], m[sched[15]])
	}

	// finalization
	for i := 0; i < 8; i++ {
		out[i] = s[i] ^ s[i+8]
		out[i+8] = s[i+8] ^ n.cv[i]
	}
}

// compressNode returns the full 16-word output of n. Nodes that no driver in
// this package can produce indicate a bug, and cause a panic.
func compressNode(n node) (out [16]uint32) {
	if n.blockLen > blockSize {
		panic("blake3: block length exceeds block size")
	}
	if n.flags&flagParent != 0 && n.flags&(flagChunkStart|flagChunkEnd) != 0 {
		panic("blake3: parent node carries chunk flags")
	}
	compressNodeGeneric(&out, n)
	return
}

func chainingValue(n node) (cv [8]uint32) {
	full := compressNode(n)
	copy(cv[:], full[:])
	return
}

func hashBlock(out *[64]byte, buf []byte) {
	var block [blockSize]byte
	var words [16]uint32
	copy(block[:], buf)
	bytesToWords(block, &words)
	wordsToBytes(compressNode(node{
		cv:       iv,
		block:    words,
		blockLen: uint32(len(buf)),
		flags:    flagChunkStart | flagChunkEnd | flagRoot,
	}), out)
}

// compressBuffer hashes up to maxSIMD chunks of buf, starting at chunk
// counter, into a single subtree node.
func compressBuffer(buf *[maxSIMD * chunkSize]byte, buflen int, key *[8]uint32, counter uint64, flags uint32) node {
	if buflen <= chunkSize {
		return compressChunk(buf[:buflen], key, counter, flags)
	}
	var cvs [maxSIMD][8]uint32
	var numCVs uint64
	for bb := bytes.NewBuffer(buf[:buflen]); bb.Len() > 0; numCVs++ {
		cvs[numCVs] = chainingValue(compressChunk(bb.Next(chunkSize), key, counter+numCVs, flags))
	}
	return mergeSubtrees(&cvs, numCVs, key, flags)
}

// compressBlocks fills out with maxSIMD consecutive output blocks of n,
// starting at n.counter.
func compressBlocks(out *[maxSIMD * blockSize]byte, n node) {
	var block [blockSize]byte
	for i := 0; i < maxSIMD; i++ {
		wordsToBytes(compressNode(n), &block)
		copy(out[i*blockSize:], block[:])
		n.counter++
	}
}

// mergeSubtrees reduces numCVs (at least two) chunk chaining values to their
// parent node, pairing left to right and carrying an odd trailing value up a
// level.
func mergeSubtrees(cvs *[maxSIMD][8]uint32, numCVs uint64, key *[8]uint32, flags uint32) node {
	for numCVs > 2 {
		rem := numCVs / 2
		for i := range cvs[:rem] {
			cvs[i] = chainingValue(parentNode(cvs[i*2], cvs[i*2+1], *key, flags))
		}
		if numCVs%2 != 0 {
			cvs[rem] = cvs[rem*2]
			rem++
		}
		numCVs = rem
	}
	return parentNode(cvs[0], cvs[1], *key, flags)
}
