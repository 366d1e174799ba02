package blake3

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WriteParallel is like Write, but compresses the independent buffer-sized
// subtrees of p on up to workers goroutines before merging them, in order,
// into the tree. If workers <= 0, DefaultWorkers is used. The resulting hash
// is identical to the one produced by Write.
//
// Cancellation is only observed between subtrees. If an error is returned,
// the Hasher holds a partial state and must be Reset before reuse.
func (h *Hasher) WriteParallel(ctx context.Context, p []byte, workers int) (int, error) {
	lenp := len(p)
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	// top up the pending buffer so that the rest of p starts on a subtree
	// boundary
	if h.buflen < len(h.buf) {
		n := copy(h.buf[h.buflen:], p)
		h.buflen += n
		p = p[n:]
	}
	if len(p) == 0 {
		return lenp, nil
	}
	h.flush()

	// the last buffer's worth of p stays pending, as in Write
	const bufSize = maxSIMD * chunkSize
	cvs := make([][8]uint32, (len(p)-1)/bufSize)
	base := h.tree.count
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cvs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf := (*[bufSize]byte)(p[i*bufSize:])
			n := compressBuffer(buf, bufSize, &h.tree.key, (base+uint64(i))*maxSIMD, h.tree.flags)
			cvs[i] = chainingValue(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for _, cv := range cvs {
		h.tree.push(cv)
	}
	h.buflen = copy(h.buf[:], p[len(cvs)*bufSize:])
	return lenp, nil
}

// SumParallel returns size bytes of the unkeyed BLAKE3 output for b, hashing
// on up to workers goroutines.
func SumParallel(ctx context.Context, b []byte, size, workers int) ([]byte, error) {
	if size < 0 {
		return nil, ErrNegativeSize
	}
	h := New(size, nil)
	if _, err := h.WriteParallel(ctx, b, workers); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
