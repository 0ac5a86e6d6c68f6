// Package audiostreams provides an asynchronous, backpressure-aware audio
// capture layer together with remote track metadata scanning.
//
// # Architecture
//
// Capture is split between a driver goroutine and the consumer:
//
//	┌─────────────────────────────────────┐
//	│            Consumer                 │  Read / Seek / Close
//	│        (player, encoder)            │
//	└─────────────────────────────────────┘
//	           ↑ ring buffer
//	┌─────────────────────────────────────┐
//	│             Stream                  │  State machine, flow
//	│   (open, pause, resume, errors)     │  control, recovery
//	└─────────────────────────────────────┘
//	           ↑ dispatch
//	┌─────────────────────────────────────┐
//	│            Monitor                  │  Readiness event loop
//	│    (wait plans, injected work)      │
//	└─────────────────────────────────────┘
//	           ↑ drain
//	┌─────────────────────────────────────┐
//	│         CaptureDriver               │  PortAudio devices,
//	│     (portaudio, wsaudio)            │  WebSocket PCM feeds
//	└─────────────────────────────────────┘
//
// The input package owns the stream lifecycle: a monitor goroutine waits
// for device readiness and drains captured PCM into a bounded ring
// buffer. When the buffer cannot hold a whole frame the stream pauses
// the device; the consumer's reads free space and resume capture at a
// watermark. Device faults run through a per-state recovery table, so
// transient overruns restart capture while unplugged devices fail the
// stream permanently.
//
// Drivers implement the input.CaptureDriver interface. Two backends are
// included: input/portaudio captures from local devices through the
// PortAudio library, and input/wsaudio consumes PCM frames from a remote
// WebSocket endpoint. Sources are addressed by URI, for example:
//
//	portaudio://default?format=48000:16:2
//	wsaudio://example.net:9000/pcm?format=44100:16:2
//
// The tagfetch package fetches track metadata over HTTP and extracts tag
// fields from the streamed JSON response without building a document
// tree. Scans can run concurrently on a bounded worker pool and cache
// their results.
//
// Supporting packages: pcm defines sample formats, config loads the
// daemon configuration, errors classifies failures as transient, fatal
// or invalid, and metric exposes Prometheus instrumentation.
package audiostreams
