// Package input implements asynchronous, backpressure-aware capture
// streams. A backend exposes its device as a CaptureDriver; the stream
// layer drains it from a dedicated monitor goroutine into a ring
// buffer, pauses capture when the buffer fills and resumes once the
// consumer has freed the configured watermark. Device faults are
// cleared through a state-keyed recovery table instead of being
// surfaced to the consumer.
package input
