package input

import "sync"

// ChunkQueue carries captured byte chunks from a backend's capture
// thread to the monitor goroutine. Push never blocks; a full queue is
// reported as overflow so the driver can flag an overrun. The queue
// keeps a partially drained chunk so Fill never splits the byte stream.
type ChunkQueue struct {
	mu      sync.Mutex
	chunks  [][]byte
	head    []byte
	max     int
	ready   chan struct{}
	pending int
}

// NewChunkQueue returns a queue that holds at most max chunks.
func NewChunkQueue(max int) *ChunkQueue {
	if max <= 0 {
		max = 16
	}
	return &ChunkQueue{
		max:   max,
		ready: make(chan struct{}, 1),
	}
}

// Push appends a chunk and signals readiness. It reports false when the
// queue is full and the chunk was dropped.
func (q *ChunkQueue) Push(chunk []byte) bool {
	if len(chunk) == 0 {
		return true
	}
	q.mu.Lock()
	if len(q.chunks) >= q.max {
		q.mu.Unlock()
		return false
	}
	q.chunks = append(q.chunks, chunk)
	q.pending += len(chunk)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Fill copies queued bytes into dst without blocking and returns the
// number copied.
func (q *ChunkQueue) Fill(dst []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(dst) {
		if len(q.head) == 0 {
			if len(q.chunks) == 0 {
				break
			}
			q.head = q.chunks[0]
			q.chunks = q.chunks[1:]
		}
		c := copy(dst[n:], q.head)
		q.head = q.head[c:]
		n += c
	}
	q.pending -= n
	return n
}

// Pending reports the number of queued bytes, including any partially
// drained chunk.
func (q *ChunkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Ready returns the channel the monitor waits on for new data.
func (q *ChunkQueue) Ready() <-chan struct{} { return q.ready }

// Clear discards all queued bytes.
func (q *ChunkQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chunks = nil
	q.head = nil
	q.pending = 0
	select {
	case <-q.ready:
	default:
	}
}
