package ring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/audiostreams/metric"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)

	_, err = New(-5)
	assert.Error(t, err)

	_, err = New(100, WithResumeThreshold(200))
	assert.Error(t, err)

	b, err := New(100)
	require.NoError(t, err)
	assert.Equal(t, 100, b.Capacity())
	assert.Equal(t, 0, b.Available())
	assert.Equal(t, 100, b.Free())
}

func TestBuffer_WriteReadRoundtrip(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)

	w := b.WriteRegion()
	require.Len(t, w, 16)
	copy(w, []byte("hello"))
	require.NoError(t, b.Commit(5))

	assert.Equal(t, 5, b.Available())
	assert.Equal(t, 11, b.Free())

	r := b.ReadRegion()
	assert.Equal(t, []byte("hello"), r)
	require.NoError(t, b.Consume(5))
	assert.Equal(t, 0, b.Available())
}

func TestBuffer_Wraparound(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)

	// Fill completely, consume 6, leaving "gh" at the physical end.
	copy(b.WriteRegion(), []byte("abcdefgh"))
	require.NoError(t, b.Commit(8))
	require.NoError(t, b.Consume(6))

	// Write cursor wrapped to the front; 6 contiguous bytes writable there.
	w := b.WriteRegion()
	require.Len(t, w, 6)
	copy(w, []byte("123456"))
	require.NoError(t, b.Commit(6))

	// Readable region stops at the physical end, then wraps.
	assert.Equal(t, []byte("gh"), b.ReadRegion())
	require.NoError(t, b.Consume(2))
	assert.Equal(t, []byte("123456"), b.ReadRegion())
	require.NoError(t, b.Consume(6))
	assert.Equal(t, 0, b.Available())
}

func TestBuffer_CommitBounds(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)

	assert.Error(t, b.Commit(-1))
	assert.Error(t, b.Commit(9))
	require.NoError(t, b.Commit(8))
	assert.Error(t, b.Commit(1)) // full
}

func TestBuffer_ConsumeBounds(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)
	require.NoError(t, b.Commit(4))

	assert.Error(t, b.Consume(-1))
	assert.Error(t, b.Consume(5))
	require.NoError(t, b.Consume(4))
	assert.Error(t, b.Consume(1)) // empty
}

func TestBuffer_InvariantUnderRandomOps(t *testing.T) {
	b, err := New(64)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		if rng.Intn(2) == 0 {
			w := b.WriteRegion()
			if len(w) > 0 {
				require.NoError(t, b.Commit(rng.Intn(len(w)+1)))
			}
		} else {
			r := b.ReadRegion()
			if len(r) > 0 {
				require.NoError(t, b.Consume(rng.Intn(len(r)+1)))
			}
		}

		require.GreaterOrEqual(t, b.Available(), 0)
		require.LessOrEqual(t, b.Available(), b.Capacity())
		require.Equal(t, b.Capacity(), b.Available()+b.Free())
	}
}

func TestBuffer_Watermarks(t *testing.T) {
	b, err := New(100, WithResumeThreshold(50))
	require.NoError(t, err)

	// Fill to capacity: writable region empties, resume not ready.
	for b.Free() > 0 {
		w := b.WriteRegion()
		require.NoError(t, b.Commit(len(w)))
	}
	assert.Empty(t, b.WriteRegion())
	assert.False(t, b.ResumeReady())

	// Freeing just below the watermark does not resume.
	require.NoError(t, b.Consume(49))
	assert.False(t, b.ResumeReady())

	// Crossing the watermark resumes, and keeps reporting ready.
	require.NoError(t, b.Consume(1))
	assert.True(t, b.ResumeReady())
	assert.True(t, b.ResumeReady())
}

func TestBuffer_Clear(t *testing.T) {
	b, err := New(16)
	require.NoError(t, err)
	require.NoError(t, b.Commit(10))

	b.Clear()
	assert.Equal(t, 0, b.Available())
	assert.Equal(t, 16, b.Free())
	assert.Len(t, b.WriteRegion(), 16)
}

func TestBuffer_Statistics(t *testing.T) {
	b, err := New(32)
	require.NoError(t, err)

	require.NoError(t, b.Commit(20))
	require.NoError(t, b.Consume(5))

	s := b.Stats()
	assert.Equal(t, int64(20), s.BytesIn())
	assert.Equal(t, int64(5), s.BytesOut())
	assert.Equal(t, int64(1), s.Commits())
	assert.Equal(t, int64(1), s.Consumes())
	assert.Equal(t, int64(15), s.Occupancy())
	assert.Equal(t, int64(20), s.HighWater())
}

func TestBuffer_WithMetrics(t *testing.T) {
	reg := metric.NewRegistry()
	b, err := New(32, WithMetrics(reg, "test_stream"))
	require.NoError(t, err)

	require.NoError(t, b.Commit(16))
	require.NoError(t, b.Consume(8))
}
