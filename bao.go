package blake3

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/bits"
)

// leftLen returns the length of the left subtree of a tree over n > 1024
// bytes: the largest power of two less than n.
func leftLen(n uint64) uint64 {
	return 1 << (bits.Len64(n-1) - 1)
}

// subtreeNode returns the top node of the subtree over p, whose first chunk
// has index counter. flags is applied to the top node only.
func subtreeNode(p []byte, counter uint64, flags uint32) node {
	const bufSize = maxSIMD * chunkSize
	if len(p) <= bufSize {
		var buf [bufSize]byte
		copy(buf[:], p)
		n := compressBuffer(&buf, len(p), &iv, counter, 0)
		n.flags |= flags
		return n
	}
	mid := leftLen(uint64(len(p)))
	l := chainingValue(subtreeNode(p[:mid], counter, 0))
	r := chainingValue(subtreeNode(p[mid:], counter+mid/chunkSize, 0))
	return parentNode(l, r, iv, flags)
}

func subtreeChainingValue(p []byte, counter uint64, flags uint32) [8]uint32 {
	return chainingValue(subtreeNode(p, counter, flags))
}

// BaoEncodedSize returns the size of a Bao encoding for the provided quantity
// of data.
func BaoEncodedSize(dataLen int, group int, outboard bool) int {
	groupSize := chunkSize << group
	size := 8
	if dataLen > 0 {
		groups := (dataLen + groupSize - 1) / groupSize
		size += (groups - 1) * 64 // one pair of child CVs per parent
	}
	if !outboard {
		size += dataLen
	}
	return size
}

// BaoEncodeFile computes the intermediate BLAKE3 tree hashes of data and
// writes them to dst in pre-order. If outboard is false, the contents of data
// are interleaved with the tree hashes. It returns the root, i.e. the BLAKE3
// hash of data. The group parameter sets how many chunks are hashed per leaf,
// as a power of 2; standard Bao uses 0.
//
// dst is not written sequentially and must be able to hold
// BaoEncodedSize(dataLen, group, outboard) bytes.
func BaoEncodeFile(dst io.WriterAt, data io.Reader, dataLen int64, group int, outboard bool) ([32]byte, error) {
	return baoEncodeTree(dst, data, dataLen, group, outboard, true, 0)
}

// baoEncodeTree encodes the tree over dataLen bytes whose first chunk has
// index counter. Only the tree of a whole file is a root.
func baoEncodeTree(dst io.WriterAt, data io.Reader, dataLen int64, group int, outboard, isRoot bool, counter uint64) ([32]byte, error) {
	e := &treeEncoder{
		dst:      dst,
		data:     data,
		buf:      make([]byte, chunkSize<<group),
		outboard: outboard,
		counter:  counter,
	}
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(dataLen))
	e.writeAt(header[:], 0)

	var flags uint32
	if isRoot {
		flags = flagRoot
	}
	_, cv := e.encode(uint64(dataLen), flags, 8)
	return *cvToBytes(&cv), e.err
}

// treeEncoder writes a pre-order Bao tree while reading data once, front to
// back. Parent CVs are written after both children are hashed, at the offset
// reserved for them.
type treeEncoder struct {
	dst      io.WriterAt
	data     io.Reader
	buf      []byte // one group
	outboard bool
	counter  uint64 // index of the next chunk
	err      error
}

func (e *treeEncoder) writeAt(p []byte, off uint64) {
	if e.err == nil {
		_, e.err = e.dst.WriteAt(p, int64(off))
	}
}

// encode writes the subtree over the next n bytes of data at off. It returns
// the number of parents in the subtree and the subtree's chaining value.
func (e *treeEncoder) encode(n uint64, flags uint32, off uint64) (uint64, [8]uint32) {
	if e.err != nil {
		return 0, [8]uint32{}
	}
	if n <= uint64(len(e.buf)) {
		g := e.buf[:n]
		if _, e.err = io.ReadFull(e.data, g); e.err != nil {
			return 0, [8]uint32{}
		}
		if !e.outboard {
			e.writeAt(g, off)
		}
		cv := subtreeChainingValue(g, e.counter, flags)
		e.counter += n / chunkSize
		return 0, cv
	}

	mid := leftLen(n)
	lparents, l := e.encode(mid, 0, off+64)
	rightOff := off + 64 + lparents*64
	if !e.outboard {
		rightOff += mid
	}
	rparents, r := e.encode(n-mid, 0, rightOff)
	e.writeAt(cvToBytes(&l)[:], off)
	e.writeAt(cvToBytes(&r)[:], off+32)
	return 1 + lparents + rparents, chainingValue(parentNode(l, r, iv, flags))
}

// BaoDecode reads content and tree data from the provided reader(s), and
// streams the verified content to dst. It returns false if verification fails.
// If the content and tree data are interleaved, outboard should be nil.
func BaoDecode(dst io.Writer, data, outboard io.Reader, group int, root [32]byte) (bool, error) {
	if outboard == nil {
		outboard = data
	}
	d := &treeDecoder{
		dst:      dst,
		data:     data,
		outboard: outboard,
		buf:      make([]byte, chunkSize<<group),
	}
	var header [8]byte
	if !d.read(outboard, header[:]) {
		return false, d.err
	}
	ok := d.verify(bytesToCV(root[:]), binary.LittleEndian.Uint64(header[:]), flagRoot)
	return ok, d.err
}

type treeDecoder struct {
	dst      io.Writer
	data     io.Reader
	outboard io.Reader
	buf      []byte
	counter  uint64
	err      error
}

func (d *treeDecoder) read(r io.Reader, p []byte) bool {
	if d.err == nil {
		_, d.err = io.ReadFull(r, p)
	}
	return d.err == nil
}

// verify checks the subtree over the next n bytes against cv, writing each
// group to dst once it has been verified.
func (d *treeDecoder) verify(cv [8]uint32, n uint64, flags uint32) bool {
	if n <= uint64(len(d.buf)) {
		g := d.buf[:n]
		if !d.read(d.data, g) || subtreeChainingValue(g, d.counter, flags) != cv {
			return false
		}
		d.counter += n / chunkSize
		_, d.err = d.dst.Write(g)
		return d.err == nil
	}

	var parent [64]byte
	if !d.read(d.outboard, parent[:]) {
		return false
	}
	l, r := bytesToCV(parent[:32]), bytesToCV(parent[32:])
	if chainingValue(parentNode(l, r, iv, flags)) != cv {
		return false
	}
	mid := leftLen(n)
	return d.verify(l, mid, 0) && d.verify(r, n-mid, 0)
}

type bufferAt struct {
	buf []byte
}

func (b *bufferAt) WriteAt(p []byte, off int64) (int, error) {
	if copy(b.buf[off:], p) != len(p) {
		panic("bad buffer size")
	}
	return len(p), nil
}

// BaoEncodeBuf returns the Bao encoding and root (i.e. BLAKE3 hash) for data.
func BaoEncodeBuf(data []byte, group int, outboard bool) ([]byte, [32]byte) {
	buf := bufferAt{buf: make([]byte, BaoEncodedSize(len(data), group, outboard))}
	root, _ := BaoEncodeFile(&buf, bytes.NewReader(data), int64(len(data)), group, outboard)
	return buf.buf, root
}

// BaoVerifyBuf verifies the Bao encoding and root (i.e. BLAKE3 hash) for data.
// If the content and tree data are interleaved, outboard should be nil.
func BaoVerifyBuf(data, outboard []byte, group int, root [32]byte) bool {
	d, o := bytes.NewBuffer(data), bytes.NewBuffer(outboard)
	var or io.Reader = o
	if outboard == nil {
		or = nil
	}
	ok, _ := BaoDecode(io.Discard, d, or, group, root)
	return ok && d.Len() == 0 && o.Len() == 0 // check for trailing data
}
