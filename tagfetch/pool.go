package tagfetch

import (
	"context"
	"time"

	"github.com/c360/audiostreams/metric"
	"github.com/c360/audiostreams/pkg/worker"
)

// ScanPool runs tag scans concurrently on a bounded worker pool. A full
// queue rejects new scans instead of blocking the caller.
type ScanPool struct {
	scanner TrackScanner
	pool    *worker.Pool[scanJob]
}

type scanJob struct {
	trackID string
	handler Handler
}

// NewScanPool builds a pool of scan workers around the scanner. Pass a
// nil registrar to disable pool metrics.
func NewScanPool(scanner TrackScanner, workers, queueSize int, registrar metric.Registrar) *ScanPool {
	p := &ScanPool{scanner: scanner}
	p.pool = worker.NewPool(workers, queueSize, p.process,
		worker.WithMetrics[scanJob](registrar, "tagscan"))
	return p
}

// Start launches the scan workers.
func (p *ScanPool) Start(ctx context.Context) error {
	return p.pool.Start(ctx)
}

// Submit queues a scan for one track. The handler fires on a worker
// goroutine when the scan completes.
func (p *ScanPool) Submit(trackID string, h Handler) error {
	return p.pool.Submit(scanJob{trackID: trackID, handler: h})
}

// Stop drains queued scans and shuts the workers down.
func (p *ScanPool) Stop(timeout time.Duration) error {
	return p.pool.Stop(timeout)
}

// Stats reports cumulative pool counters.
func (p *ScanPool) Stats() worker.Stats {
	return p.pool.Stats()
}

func (p *ScanPool) process(ctx context.Context, job scanJob) error {
	observed := &errObserver{Handler: job.handler}
	p.scanner.Scan(ctx, job.trackID, observed)
	return observed.err
}

// errObserver forwards callbacks while recording the error so the pool
// failure counter reflects failed scans.
type errObserver struct {
	Handler
	err error
}

func (o *errObserver) OnRemoteTagError(err error) {
	o.err = err
	o.Handler.OnRemoteTagError(err)
}
