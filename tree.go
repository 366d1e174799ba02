package blake3

import "math/bits"

// cvStack is the log(n) set of Merkle subtree roots, at most one per height.
// Subtrees pushed onto a stack must all be complete and of equal size.
type cvStack struct {
	key   [8]uint32
	flags uint32

	stack [64][8]uint32
	count uint64 // number of subtrees pushed; also a bit vector of occupied heights
}

func (s *cvStack) hasSubtreeAtHeight(i int) bool {
	return s.count&(1<<i) != 0
}

// push appends a subtree to the right edge of the tree.
func (s *cvStack) push(cv [8]uint32) {
	// seek to first open stack slot, merging subtrees as we go
	i := 0
	for s.hasSubtreeAtHeight(i) {
		cv = chainingValue(parentNode(s.stack[i], cv, s.key, s.flags))
		i++
	}
	s.stack[i] = cv
	s.count++
}

// root closes the tree with n as its rightmost node and returns the
// uncompressed top node. It does not modify the stack. The returned node does
// not carry flagRoot.
func (s *cvStack) root(n node) node {
	if s.count == 0 {
		return n
	}
	return s.rootCV(chainingValue(n))
}

// rootCV is like root, but closes the tree with an already compressed
// rightmost subtree. The stack must not be empty.
func (s *cvStack) rootCV(cv [8]uint32) node {
	if s.count == 0 {
		panic("blake3: rootCV of an empty stack")
	}
	i := bits.TrailingZeros64(s.count)
	n := parentNode(s.stack[i], cv, s.key, s.flags)
	for i++; i < bits.Len64(s.count); i++ {
		if s.hasSubtreeAtHeight(i) {
			n = parentNode(s.stack[i], chainingValue(n), s.key, s.flags)
		}
	}
	return n
}
