package ring

import "github.com/c360/audiostreams/metric"

type options struct {
	resumeThreshold int
	registrar       metric.Registrar
	metricsName     string
}

func defaultOptions(capacity int) *options {
	return &options{
		resumeThreshold: capacity / 2,
	}
}

// Option configures a Buffer.
type Option func(*options)

// WithResumeThreshold overrides the resume watermark in bytes. A paused
// producer resumes once at least this much free space is available.
func WithResumeThreshold(bytes int) Option {
	return func(o *options) {
		o.resumeThreshold = bytes
	}
}

// WithMetrics exposes buffer activity as Prometheus metrics under the given
// component name.
func WithMetrics(registrar metric.Registrar, name string) Option {
	return func(o *options) {
		o.registrar = registrar
		o.metricsName = name
	}
}
