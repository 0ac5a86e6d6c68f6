// Package worker provides a bounded, generic worker pool. Submission is
// non-blocking: a full queue rejects work with ErrQueueFull so callers see
// overload instead of latency.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/audiostreams/metric"
)

// Pool runs a fixed set of goroutines draining a bounded queue of work
// items of type T.
type Pool[T any] struct {
	workers   int
	queueSize int
	process   func(context.Context, T) error

	work    chan T
	wg      sync.WaitGroup
	metrics *poolMetrics

	mu      sync.Mutex
	started bool
	stopped bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithMetrics attaches Prometheus instruments under the given pool name.
func WithMetrics[T any](registrar metric.Registrar, name string) Option[T] {
	return func(p *Pool[T]) {
		m, err := newPoolMetrics(registrar, name)
		if err == nil {
			p.metrics = m
		}
	}
}

// NewPool creates a pool of the given size. Non-positive workers or
// queueSize fall back to defaults. A nil process function panics.
func NewPool[T any](workers, queueSize int, process func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if process == nil {
		panic(ErrNilProcessor)
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		process:   process,
		work:      make(chan T, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. The context bounds the lifetime of all
// in-flight processing.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.started = true
	return nil
}

// Submit enqueues a work item without blocking. A full queue drops the
// item and returns ErrQueueFull.
func (p *Pool[T]) Submit(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.work <- item:
		p.submitted.Add(1)
		p.metrics.recordSubmit(len(p.work))
		return nil
	default:
		p.dropped.Add(1)
		p.metrics.recordDrop()
		return ErrQueueFull
	}
}

// Stop closes the queue and waits up to timeout for workers to drain it.
// It is idempotent.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return nil
	}

	close(p.work)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.stopped = true
		p.metrics.cleanup()
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats reports cumulative pool counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.work),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// Stats describes the state of a Pool.
type Stats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.work:
			if !ok {
				return
			}

			start := time.Now()
			err := p.process(ctx, item)

			p.processed.Add(1)
			if err != nil {
				p.failed.Add(1)
			}
			p.metrics.recordProcessed(err, time.Since(start), len(p.work))
		}
	}
}

// poolMetrics holds the Prometheus instruments for one pool. A nil
// receiver disables all recording.
type poolMetrics struct {
	registrar metric.Registrar
	component string

	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	queueDepth     prometheus.Gauge
	processingTime prometheus.Histogram
}

func newPoolMetrics(registrar metric.Registrar, name string) (*poolMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	component := "worker_" + name
	labels := prometheus.Labels{"pool": name}

	m := &poolMetrics{
		registrar: registrar,
		component: component,
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "worker",
			Name:        "submitted_total",
			Help:        "Total work items submitted",
			ConstLabels: labels,
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "worker",
			Name:        "processed_total",
			Help:        "Total work items processed",
			ConstLabels: labels,
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "worker",
			Name:        "failed_total",
			Help:        "Total work items whose processor returned an error",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "worker",
			Name:        "dropped_total",
			Help:        "Total work items rejected by a full queue",
			ConstLabels: labels,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "audiostreams",
			Subsystem:   "worker",
			Name:        "queue_depth",
			Help:        "Work items currently queued",
			ConstLabels: labels,
		}),
		processingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "audiostreams",
			Subsystem:   "worker",
			Name:        "processing_seconds",
			Help:        "Time spent processing one work item",
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 8),
			ConstLabels: labels,
		}),
	}

	counters := map[string]prometheus.Counter{
		"submitted_total": m.submitted,
		"processed_total": m.processed,
		"failed_total":    m.failed,
		"dropped_total":   m.dropped,
	}
	for name, counter := range counters {
		if err := registrar.RegisterCounter(component, name, counter); err != nil {
			m.cleanup()
			return nil, err
		}
	}
	if err := registrar.RegisterGauge(component, "queue_depth", m.queueDepth); err != nil {
		m.cleanup()
		return nil, err
	}
	if err := registrar.RegisterHistogram(component, "processing_seconds", m.processingTime); err != nil {
		m.cleanup()
		return nil, err
	}

	return m, nil
}

func (m *poolMetrics) cleanup() {
	if m == nil || m.registrar == nil {
		return
	}
	for _, name := range []string{
		"submitted_total", "processed_total", "failed_total",
		"dropped_total", "queue_depth", "processing_seconds",
	} {
		m.registrar.Unregister(m.component, name)
	}
}

func (m *poolMetrics) recordSubmit(depth int) {
	if m == nil {
		return
	}
	m.submitted.Inc()
	m.queueDepth.Set(float64(depth))
}

func (m *poolMetrics) recordDrop() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *poolMetrics) recordProcessed(err error, d time.Duration, depth int) {
	if m == nil {
		return
	}
	m.processed.Inc()
	if err != nil {
		m.failed.Inc()
	}
	m.processingTime.Observe(d.Seconds())
	m.queueDepth.Set(float64(depth))
}
