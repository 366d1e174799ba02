/*
Package multihash registers this module's BLAKE3 implementation with
go-multihash, replacing the default one.

It is meant to be used as a side-effecting import, e.g.

	import (
		_ "github.com/upalinski/blake3/multihash"
	)
*/
package multihash

import (
	"hash"

	mh "github.com/multiformats/go-multihash"
	mhcore "github.com/multiformats/go-multihash/core"

	"github.com/upalinski/blake3"
)

func init() {
	mhcore.Register(mh.BLAKE3, func() hash.Hash { return blake3.New(blake3.DefaultSize, nil) })
	mhcore.RegisterVariableSize(mh.BLAKE3, func(size int) (hash.Hash, bool) {
		if size == -1 {
			size = blake3.DefaultSize
		} else if size < 0 {
			return nil, false
		}
		return blake3.New(size, nil), true
	})
}

// Sum returns the BLAKE3 multihash of data with a digest of size bytes. A size
// of -1 selects the default 32-byte digest.
func Sum(data []byte, size int) (mh.Multihash, error) {
	if size == -1 {
		size = blake3.DefaultSize
	}
	digest, err := blake3.Hash(data, size)
	if err != nil {
		return nil, err
	}
	return mh.Encode(digest, mh.BLAKE3)
}
