package ring

import "sync/atomic"

// Statistics tracks buffer activity. All fields use atomics so they are ALWAYS
// safe to read, even from goroutines that do not hold the owner's lock.
type Statistics struct {
	bytesIn   atomic.Int64
	bytesOut  atomic.Int64
	commits   atomic.Int64
	consumes  atomic.Int64
	occupancy atomic.Int64
	highWater atomic.Int64
}

// NewStatistics creates a zeroed Statistics.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Commit records a producer commit of n bytes.
func (s *Statistics) Commit(n int) {
	s.bytesIn.Add(int64(n))
	s.commits.Add(1)
}

// Consume records a consumer release of n bytes.
func (s *Statistics) Consume(n int) {
	s.bytesOut.Add(int64(n))
	s.consumes.Add(1)
}

// UpdateOccupancy records the current number of buffered bytes.
func (s *Statistics) UpdateOccupancy(size int) {
	s.occupancy.Store(int64(size))
	for {
		hw := s.highWater.Load()
		if int64(size) <= hw || s.highWater.CompareAndSwap(hw, int64(size)) {
			return
		}
	}
}

// BytesIn returns the total bytes committed by the producer.
func (s *Statistics) BytesIn() int64 { return s.bytesIn.Load() }

// BytesOut returns the total bytes consumed.
func (s *Statistics) BytesOut() int64 { return s.bytesOut.Load() }

// Commits returns the number of commit operations.
func (s *Statistics) Commits() int64 { return s.commits.Load() }

// Consumes returns the number of consume operations.
func (s *Statistics) Consumes() int64 { return s.consumes.Load() }

// Occupancy returns the buffered byte count at the last update.
func (s *Statistics) Occupancy() int64 { return s.occupancy.Load() }

// HighWater returns the maximum occupancy observed.
func (s *Statistics) HighWater() int64 { return s.highWater.Load() }
