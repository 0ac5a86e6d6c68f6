package input

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/audiostreams/metric"
)

// streamMetrics holds the Prometheus instruments for one capture stream.
// A nil receiver disables all recording.
type streamMetrics struct {
	registrar metric.Registrar
	component string

	bytesCaptured   prometheus.Counter
	dispatches      prometheus.Counter
	recoveries      prometheus.Counter
	pauses          prometheus.Counter
	resumes         prometheus.Counter
	drainErrors     prometheus.Counter
	consumerWaits   prometheus.Counter
	bufferedBytes   prometheus.Gauge
	dispatchedBytes prometheus.Histogram
}

func newStreamMetrics(registrar metric.Registrar, plugin, device string) (*streamMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	component := fmt.Sprintf("input_%s_%s", plugin, device)
	labels := prometheus.Labels{"plugin": plugin, "device": device}

	m := &streamMetrics{
		registrar: registrar,
		component: component,
		bytesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "bytes_captured_total",
			Help:        "Total PCM bytes committed to the stream buffer",
			ConstLabels: labels,
		}),
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "dispatches_total",
			Help:        "Total drain dispatches by the readiness monitor",
			ConstLabels: labels,
		}),
		recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "recoveries_total",
			Help:        "Total device recovery attempts",
			ConstLabels: labels,
		}),
		pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "pauses_total",
			Help:        "Total flow-control pauses on buffer full",
			ConstLabels: labels,
		}),
		resumes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "resumes_total",
			Help:        "Total flow-control resumes at the free-space watermark",
			ConstLabels: labels,
		}),
		drainErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "drain_errors_total",
			Help:        "Total non-recoverable drain failures",
			ConstLabels: labels,
		}),
		consumerWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "consumer_waits_total",
			Help:        "Total consumer reads that blocked on an empty buffer",
			ConstLabels: labels,
		}),
		bufferedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "buffered_bytes",
			Help:        "Bytes currently buffered between capture and consumer",
			ConstLabels: labels,
		}),
		dispatchedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "audiostreams",
			Subsystem:   "input",
			Name:        "dispatched_bytes",
			Help:        "Bytes drained per dispatch",
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
			ConstLabels: labels,
		}),
	}

	counters := map[string]prometheus.Counter{
		"bytes_captured_total": m.bytesCaptured,
		"dispatches_total":     m.dispatches,
		"recoveries_total":     m.recoveries,
		"pauses_total":         m.pauses,
		"resumes_total":        m.resumes,
		"drain_errors_total":   m.drainErrors,
		"consumer_waits_total": m.consumerWaits,
	}
	for name, counter := range counters {
		if err := registrar.RegisterCounter(component, name, counter); err != nil {
			m.cleanup()
			return nil, err
		}
	}
	if err := registrar.RegisterGauge(component, "buffered_bytes", m.bufferedBytes); err != nil {
		m.cleanup()
		return nil, err
	}
	if err := registrar.RegisterHistogram(component, "dispatched_bytes", m.dispatchedBytes); err != nil {
		m.cleanup()
		return nil, err
	}

	return m, nil
}

func (m *streamMetrics) cleanup() {
	if m == nil || m.registrar == nil {
		return
	}
	for _, name := range []string{
		"bytes_captured_total", "dispatches_total", "recoveries_total",
		"pauses_total", "resumes_total", "drain_errors_total",
		"consumer_waits_total", "buffered_bytes", "dispatched_bytes",
	} {
		m.registrar.Unregister(m.component, name)
	}
}

func (m *streamMetrics) recordDispatch(n int) {
	if m == nil {
		return
	}
	m.dispatches.Inc()
	if n > 0 {
		m.bytesCaptured.Add(float64(n))
		m.dispatchedBytes.Observe(float64(n))
	}
}

func (m *streamMetrics) recordBuffered(n int) {
	if m == nil {
		return
	}
	m.bufferedBytes.Set(float64(n))
}

func (m *streamMetrics) recordRecovery() {
	if m == nil {
		return
	}
	m.recoveries.Inc()
}

func (m *streamMetrics) recordPause() {
	if m == nil {
		return
	}
	m.pauses.Inc()
}

func (m *streamMetrics) recordResume() {
	if m == nil {
		return
	}
	m.resumes.Inc()
}

func (m *streamMetrics) recordDrainError() {
	if m == nil {
		return
	}
	m.drainErrors.Inc()
}

func (m *streamMetrics) recordConsumerWait() {
	if m == nil {
		return
	}
	m.consumerWaits.Inc()
}
