package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkQueue_RoundTrip(t *testing.T) {
	q := NewChunkQueue(4)
	require.True(t, q.Push([]byte("abcd")))
	require.True(t, q.Push([]byte("efgh")))
	assert.Equal(t, 8, q.Pending())

	dst := make([]byte, 6)
	assert.Equal(t, 6, q.Fill(dst))
	assert.Equal(t, "abcdef", string(dst))
	assert.Equal(t, 2, q.Pending())

	assert.Equal(t, 2, q.Fill(dst))
	assert.Equal(t, "gh", string(dst[:2]))
	assert.Equal(t, 0, q.Pending())
	assert.Equal(t, 0, q.Fill(dst))
}

func TestChunkQueue_OverflowDropsChunk(t *testing.T) {
	q := NewChunkQueue(2)
	assert.True(t, q.Push([]byte("aa")))
	assert.True(t, q.Push([]byte("bb")))
	assert.False(t, q.Push([]byte("cc")))
	assert.Equal(t, 4, q.Pending())
}

func TestChunkQueue_ReadySignal(t *testing.T) {
	q := NewChunkQueue(4)
	select {
	case <-q.Ready():
		t.Fatal("ready before any push")
	default:
	}

	q.Push([]byte("aa"))
	select {
	case <-q.Ready():
	default:
		t.Fatal("no ready signal after push")
	}
}

func TestChunkQueue_Clear(t *testing.T) {
	q := NewChunkQueue(4)
	q.Push([]byte("aa"))
	q.Clear()
	assert.Equal(t, 0, q.Pending())
	select {
	case <-q.Ready():
		t.Fatal("ready signal survived clear")
	default:
	}
}

func TestChunkQueue_EmptyPush(t *testing.T) {
	q := NewChunkQueue(4)
	assert.True(t, q.Push(nil))
	assert.Equal(t, 0, q.Pending())
}
