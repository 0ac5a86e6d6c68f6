package metric

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/audiostreams/errors"
)

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiostreams",
		Subsystem: "test",
		Name:      "events_total",
		Help:      "test counter",
	})

	require.NoError(t, r.RegisterCounter("stream", "events", counter))
	assert.True(t, r.Unregister("stream", "events"))
	assert.False(t, r.Unregister("stream", "events"))
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "audiostreams",
		Subsystem: "test",
		Name:      "utilization",
		Help:      "test gauge",
	})

	require.NoError(t, r.RegisterGauge("stream", "utilization", gauge))
	err := r.RegisterGauge("stream", "utilization", gauge)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestHandler_ServesMetrics(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "audiostreams",
		Subsystem: "test",
		Name:      "hits_total",
		Help:      "test counter",
	})
	require.NoError(t, r.RegisterCounter("stream", "hits", counter))
	counter.Add(3)

	srv := httptest.NewServer(Handler(r))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	health, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, 200, health.StatusCode)
}
