package ring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/audiostreams/metric"
)

// ringMetrics mirrors buffer activity into Prometheus.
type ringMetrics struct {
	bytesIn     prometheus.Counter
	bytesOut    prometheus.Counter
	utilization prometheus.Gauge
}

func newRingMetrics(registrar metric.Registrar, name string) (*ringMetrics, error) {
	m := &ringMetrics{
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audiostreams",
			Subsystem: "ring",
			Name:      "bytes_in_total",
			Help:      "Total bytes committed into the ring buffer",
			ConstLabels: prometheus.Labels{
				"buffer": name,
			},
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audiostreams",
			Subsystem: "ring",
			Name:      "bytes_out_total",
			Help:      "Total bytes consumed from the ring buffer",
			ConstLabels: prometheus.Labels{
				"buffer": name,
			},
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "audiostreams",
			Subsystem: "ring",
			Name:      "utilization_ratio",
			Help:      "Ring buffer occupancy (0-1) showing backpressure",
			ConstLabels: prometheus.Labels{
				"buffer": name,
			},
		}),
	}

	if err := registrar.RegisterCounter(name, "ring_bytes_in", m.bytesIn); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(name, "ring_bytes_out", m.bytesOut); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge(name, "ring_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *ringMetrics) recordCommit(n, size, capacity int) {
	m.bytesIn.Add(float64(n))
	m.updateOccupancy(size, capacity)
}

func (m *ringMetrics) recordConsume(n, size, capacity int) {
	m.bytesOut.Add(float64(n))
	m.updateOccupancy(size, capacity)
}

func (m *ringMetrics) updateOccupancy(size, capacity int) {
	m.utilization.Set(float64(size) / float64(capacity))
}
