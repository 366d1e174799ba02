package blake3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteParallelMatchesWrite(t *testing.T) {
	const unit = maxSIMD * chunkSize
	sizes := []int{0, 1, 1024, unit - 1, unit, unit + 1, 2 * unit, 2*unit + 1, 5*unit + 2051, 37*unit + 7}
	for _, size := range sizes {
		in := testInput(size)
		want := Sum256(in)
		for _, workers := range []int{0, 1, 3, 16} {
			got, err := SumParallel(context.Background(), in, 32, workers)
			require.NoError(t, err)
			assert.Equal(t, want[:], got, "size %d workers %d", size, workers)
		}
	}
}

func TestWriteParallelMixedWithWrite(t *testing.T) {
	const unit = maxSIMD * chunkSize
	in := testInput(9*unit + 500)
	key := []byte(testVectorKey)

	want, err := KeyedHash(key, in, 64)
	require.NoError(t, err)

	for _, split := range []int{0, 1, 100, unit, unit + 1, 4*unit - 3} {
		h := New(64, key)
		h.Write(in[:split])
		rest := in[split:]
		half := len(rest) / 2
		n, err := h.WriteParallel(context.Background(), rest[:half], 4)
		require.NoError(t, err)
		assert.Equal(t, half, n)
		_, err = h.WriteParallel(context.Background(), rest[half:], 4)
		require.NoError(t, err)
		assert.Equal(t, want, h.Sum(nil), "split %d", split)
	}
}

func TestWriteParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := New(32, nil)
	_, err := h.WriteParallel(ctx, testInput(8*maxSIMD*chunkSize), 2)
	assert.ErrorIs(t, err, context.Canceled)

	// after a Reset the Hasher is usable again
	h.Reset()
	_, err = h.WriteParallel(context.Background(), testInput(1025), 2)
	require.NoError(t, err)
	assert.Equal(t, testVectors[7].hash, toHex(h.Sum(nil)))
}

func TestDefaultWorkers(t *testing.T) {
	assert.Positive(t, DefaultWorkers())
	assert.NotEmpty(t, CPUFeatures())
}

func BenchmarkWriteParallel(b *testing.B) {
	buf := make([]byte, 1<<22)
	b.SetBytes(int64(len(buf)))
	for i := 0; i < b.N; i++ {
		h := New(32, nil)
		h.WriteParallel(context.Background(), buf, 0)
		h.Sum(nil)
	}
}
