// Package ring implements the fixed-capacity byte ring buffer behind an
// asynchronous input stream, with high/low watermark flow control.
//
// The producer claims a contiguous writable span with WriteRegion, fills some
// prefix of it, and publishes with Commit. The consumer mirrors this with
// ReadRegion and Consume. The pause watermark is the full buffer: a producer
// that finds WriteRegion empty should pause. The resume watermark is
// configurable (default half the capacity): ResumeReady reports, level
// triggered, whether enough space has been freed to resume a paused producer.
//
// A Buffer performs no locking of its own. It is owned by exactly one stream,
// which guards every call with the single mutex it already shares with its
// consumer; a second internal lock would only invite ordering mistakes.
// Statistics use atomics and may be read from any goroutine.
package ring

import (
	"fmt"

	"github.com/c360/audiostreams/errors"
)

// Buffer is a fixed-capacity byte ring. The zero value is not usable; call New.
type Buffer struct {
	buf  []byte
	tail int // next read position
	size int // bytes stored

	resumeThreshold int

	stats   *Statistics
	metrics *ringMetrics
}

// New creates a Buffer with the given capacity in bytes.
func New(capacity int, opts ...Option) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("capacity %d", capacity),
			"ring", "New", "capacity validation")
	}

	o := defaultOptions(capacity)
	for _, opt := range opts {
		opt(o)
	}
	if o.resumeThreshold <= 0 || o.resumeThreshold > capacity {
		return nil, errors.WrapInvalid(
			fmt.Errorf("resume threshold %d with capacity %d", o.resumeThreshold, capacity),
			"ring", "New", "watermark validation")
	}

	b := &Buffer{
		buf:             make([]byte, capacity),
		resumeThreshold: o.resumeThreshold,
		stats:           NewStatistics(),
	}

	if o.registrar != nil && o.metricsName != "" {
		m, err := newRingMetrics(o.registrar, o.metricsName)
		if err != nil {
			return nil, err
		}
		b.metrics = m
	}

	return b, nil
}

// Capacity returns the fixed buffer capacity in bytes.
func (b *Buffer) Capacity() int { return len(b.buf) }

// Available returns the number of buffered bytes ready for the consumer.
func (b *Buffer) Available() int { return b.size }

// Free returns the number of writable bytes remaining.
func (b *Buffer) Free() int { return len(b.buf) - b.size }

// ResumeReady reports whether enough space has been freed for a paused
// producer to resume. Level-triggered: it keeps reporting true until the
// buffer fills past the watermark again, so redundant resume requests are
// harmless.
func (b *Buffer) ResumeReady() bool {
	return b.Free() >= b.resumeThreshold
}

// WriteRegion returns the contiguous free span starting at the write cursor.
// The producer may fill any prefix of it and must then call Commit with the
// number of bytes written. An empty region means the buffer is full and the
// producer should pause.
func (b *Buffer) WriteRegion() []byte {
	w := (b.tail + b.size) % len(b.buf)
	n := b.Free()
	if right := len(b.buf) - w; n > right {
		n = right
	}
	return b.buf[w : w+n]
}

// Commit publishes n bytes previously written into WriteRegion.
func (b *Buffer) Commit(n int) error {
	if n < 0 || n > len(b.WriteRegion()) {
		return errors.WrapInvalid(
			fmt.Errorf("commit of %d bytes exceeds writable region", n),
			"ring", "Commit", "span bounds check")
	}

	b.size += n
	b.stats.Commit(n)
	b.stats.UpdateOccupancy(b.size)
	if b.metrics != nil {
		b.metrics.recordCommit(n, b.size, len(b.buf))
	}
	return nil
}

// ReadRegion returns the contiguous filled span starting at the read cursor.
// The consumer copies out any prefix and must then call Consume.
func (b *Buffer) ReadRegion() []byte {
	n := b.size
	if right := len(b.buf) - b.tail; n > right {
		n = right
	}
	return b.buf[b.tail : b.tail+n]
}

// Consume releases n bytes previously obtained through ReadRegion.
func (b *Buffer) Consume(n int) error {
	if n < 0 || n > len(b.ReadRegion()) {
		return errors.WrapInvalid(
			fmt.Errorf("consume of %d bytes exceeds readable region", n),
			"ring", "Consume", "span bounds check")
	}

	b.tail = (b.tail + n) % len(b.buf)
	b.size -= n
	b.stats.Consume(n)
	b.stats.UpdateOccupancy(b.size)
	if b.metrics != nil {
		b.metrics.recordConsume(n, b.size, len(b.buf))
	}
	return nil
}

// Clear discards all buffered bytes.
func (b *Buffer) Clear() {
	b.tail = 0
	b.size = 0
	b.stats.UpdateOccupancy(0)
	if b.metrics != nil {
		b.metrics.updateOccupancy(0, len(b.buf))
	}
}

// Stats returns the buffer's always-on statistics.
func (b *Buffer) Stats() *Statistics {
	return b.stats
}
