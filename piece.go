package blake3

import (
	"errors"
	"io"
)

var (
	ErrPieceSize     = errors.New("blake3: piece size must be a power-of-two multiple of the group size")
	ErrPieceTooLarge = errors.New("blake3: piece is longer than the piece size")
	ErrTooFewPieces  = errors.New("blake3: at least two piece roots are required")
	ErrEmptyPiece    = errors.New("blake3: only the first piece of a file may be empty")
)

// BaoEncodePiece writes the Bao encoding of one piece of a larger file to dst
// and returns the piece's subtree chaining value. A file is split into pieces
// of pieceSize bytes; pieceIndex locates data within the file, so that the
// returned value is the exact node the file's BLAKE3 tree holds for that
// piece. Every piece but the last must be exactly pieceSize bytes long.
//
// Piece values are not hashes of their own: combine the values of all pieces
// of a file, in order, with CombinePieceRoots to obtain the file's hash.
func BaoEncodePiece(dst io.WriterAt, data io.Reader, dataLen int64, group int, outboard bool, pieceSize int64, pieceIndex uint64) ([32]byte, error) {
	groupSize := int64(chunkSize) << group
	if pieceSize < groupSize || pieceSize&(pieceSize-1) != 0 {
		return [32]byte{}, ErrPieceSize
	} else if dataLen > pieceSize {
		return [32]byte{}, ErrPieceTooLarge
	} else if dataLen == 0 && pieceIndex > 0 {
		return [32]byte{}, ErrEmptyPiece
	}
	// counted in chunks, so that the piece keeps its position in the file
	counter := uint64(pieceSize/chunkSize) * pieceIndex
	return baoEncodeTree(dst, data, dataLen, group, outboard, false, counter)
}

// CombinePieceRoots merges the piece values returned by BaoEncodePiece, in file
// order, into the BLAKE3 hash of the whole file.
func CombinePieceRoots(roots [][32]byte) ([32]byte, error) {
	if len(roots) < 2 {
		return [32]byte{}, ErrTooFewPieces
	}
	tree := cvStack{key: iv}
	for _, r := range roots[:len(roots)-1] {
		tree.push(bytesToCV(r[:]))
	}
	last := roots[len(roots)-1]
	n := tree.rootCV(bytesToCV(last[:]))
	n.flags |= flagRoot
	cv := chainingValue(n)
	return *cvToBytes(&cv), nil
}
