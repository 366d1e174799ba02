package blake3

import "unsafe"

// amd64 is little-endian, so words and bytes share a memory layout and the
// conversions below are plain reinterpretations.

func bytesToWords(bytes [64]byte, words *[16]uint32) {
	*words = *(*[16]uint32)(unsafe.Pointer(&bytes))
}

func wordsToBytes(words [16]uint32, block *[64]byte) {
	*block = *(*[64]byte)(unsafe.Pointer(&words))
}

func bytesToCV(b []byte) [8]uint32 {
	_ = b[31] // bounds check hint
	return *(*[8]uint32)(unsafe.Pointer(&b[0]))
}

func cvToBytes(cv *[8]uint32) *[32]byte {
	return (*[32]byte)(unsafe.Pointer(cv))
}
