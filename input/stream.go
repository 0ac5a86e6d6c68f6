package input

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/errors"
	"github.com/c360/audiostreams/metric"
	"github.com/c360/audiostreams/pkg/retry"
	"github.com/c360/audiostreams/pkg/ring"
)

// StreamState is the consumer-visible lifecycle state of a capture
// stream.
type StreamState int

const (
	StreamOpening StreamState = iota
	StreamReady
	StreamPaused
	StreamEOF
	StreamErrored
)

// String returns a short lowercase name for logging.
func (s StreamState) String() string {
	switch s {
	case StreamOpening:
		return "opening"
	case StreamReady:
		return "ready"
	case StreamPaused:
		return "paused"
	case StreamEOF:
		return "eof"
	case StreamErrored:
		return "errored"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// maxRecoverAttempts bounds back-to-back recoveries within a single
// dispatch before the stream gives up on the device.
const maxRecoverAttempts = 5

// StreamDeps contains the dependencies for opening a capture stream.
type StreamDeps struct {
	// Plugin names the backend; it appears in the MIME type and metrics.
	Plugin string
	// Spec is the parsed source URI. It must be scheme-valid and
	// complete.
	Spec SourceSpec
	// Driver is the capture backend. The stream owns it after a
	// successful open and closes it on Close.
	Driver CaptureDriver
	// Config supplies buffer sizing and open flags.
	Config config.InputConfig
	// Logger is optional; nil selects the default logger.
	Logger *slog.Logger
	// Metrics is optional; nil disables instrumentation.
	Metrics metric.Registrar
	// MaxWait bounds the monitor's wait timeout; zero selects a default.
	MaxWait time.Duration
}

// Stream is an asynchronous capture stream. A monitor goroutine drains
// the device into a ring buffer; consumers pull from the buffer with
// Read. When the buffer fills the stream pauses capture, and the next
// Read that frees half the buffer resumes it.
type Stream struct {
	mu   sync.Mutex
	cond *sync.Cond

	ring   *ring.Buffer
	state  StreamState
	err    error
	offset int64
	closed bool

	driver     CaptureDriver
	monitor    *Monitor
	spec       SourceSpec
	params     NegotiatedParams
	frameSize  int
	mimeType   string
	logger     *slog.Logger
	metrics    *streamMetrics
	recoverLog *rate.Limiter
}

// OpenStream opens the device described by deps.Spec, starts capture and
// launches the readiness monitor. Transient open failures are retried
// with backoff before giving up; ctx bounds the retries.
func OpenStream(ctx context.Context, deps StreamDeps) (*Stream, error) {
	if err := deps.Spec.Validate(); err != nil {
		return nil, err
	}
	if deps.Driver == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Stream", "OpenStream", "no capture driver")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin", deps.Plugin, "device", deps.Spec.Device)

	flags := deps.Config.OpenFlags()
	err := retry.Do(ctx, retry.DeviceOpen(), func() error {
		openErr := deps.Driver.Open(deps.Spec.Device, flags)
		if openErr != nil && !errors.IsTransient(openErr) {
			return retry.NonRetryable(openErr)
		}
		return openErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "Stream", "OpenStream", "open capture device")
	}

	params, err := deps.Driver.Configure(deps.Spec.Format)
	if err != nil {
		_ = deps.Driver.Close()
		return nil, errors.Wrap(err, "Stream", "OpenStream", "configure capture device")
	}
	frameSize := params.FrameSize
	if frameSize <= 0 {
		frameSize = params.Format.FrameSize()
	}

	capacity := params.Format.TimeToSize(deps.Config.BufferTime)
	if capacity < frameSize {
		capacity = frameSize
	}
	threshold := params.Format.TimeToSize(deps.Config.ResumeTime)
	if threshold <= 0 || threshold > capacity {
		threshold = capacity / 2
	}
	if threshold <= 0 {
		threshold = capacity
	}

	ringOpts := []ring.Option{ring.WithResumeThreshold(threshold)}
	if deps.Metrics != nil {
		ringOpts = append(ringOpts,
			ring.WithMetrics(deps.Metrics, fmt.Sprintf("%s_%s", deps.Plugin, deps.Spec.Device)))
	}
	buf, err := ring.New(capacity, ringOpts...)
	if err != nil {
		_ = deps.Driver.Close()
		return nil, errors.Wrap(err, "Stream", "OpenStream", "allocate stream buffer")
	}

	metrics, err := newStreamMetrics(deps.Metrics, deps.Plugin, deps.Spec.Device)
	if err != nil {
		_ = deps.Driver.Close()
		return nil, errors.Wrap(err, "Stream", "OpenStream", "register metrics")
	}

	if err := deps.Driver.Start(); err != nil {
		metrics.cleanup()
		_ = deps.Driver.Close()
		return nil, errors.Wrap(err, "Stream", "OpenStream", "start capture")
	}

	s := &Stream{
		ring:       buf,
		state:      StreamReady,
		driver:     deps.Driver,
		spec:       deps.Spec,
		params:     params,
		frameSize:  frameSize,
		mimeType:   fmt.Sprintf("audio/x-%s-pcm;format=%s", deps.Plugin, deps.Spec.FormatString),
		logger:     logger,
		metrics:    metrics,
		recoverLog: rate.NewLimiter(rate.Every(time.Second), 4),
	}
	s.cond = sync.NewCond(&s.mu)
	s.monitor = NewMonitor(deps.Driver, s, deps.MaxWait)
	s.monitor.Start()

	logger.Info("capture stream open",
		"format", params.Format.String(),
		"buffer_bytes", capacity,
		"resume_bytes", threshold)
	return s, nil
}

// Active reports whether the monitor should arm driver waits. Called
// only from the monitor goroutine.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StreamReady
}

// Dispatch performs one non-blocking drain attempt. Called only from
// the monitor goroutine.
func (s *Stream) Dispatch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StreamReady {
		return
	}

	region := s.ring.WriteRegion()
	frames := len(region) / s.frameSize
	if frames == 0 {
		s.pauseLocked()
		return
	}
	span := region[:frames*s.frameSize]

	recoveries := 0
	for {
		n, err := s.driver.Drain(span)
		if err == nil {
			if commitErr := s.ring.Commit(n); commitErr != nil {
				s.failLocked(commitErr)
				return
			}
			s.metrics.recordDispatch(n)
			s.metrics.recordBuffered(s.ring.Available())
			if n > 0 {
				s.cond.Broadcast()
			}
			return
		}
		if stderrors.Is(err, errors.ErrWouldBlock) {
			s.metrics.recordDispatch(0)
			return
		}
		if stderrors.Is(err, io.EOF) {
			s.setEOFLocked()
			return
		}

		var devErr *DeviceError
		if !stderrors.As(err, &devErr) {
			s.failLocked(errors.Wrap(err, "Stream", "Dispatch", "drain capture device"))
			return
		}

		recoveries++
		s.metrics.recordRecovery()
		if s.recoverLog.Allow() {
			s.logger.Warn("recovering capture device",
				"code", devErr.Code,
				"state", s.driver.State().String(),
				"attempt", recoveries)
		}
		if recoveries > maxRecoverAttempts {
			s.failLocked(errors.WrapFatal(devErr, "Stream", "Dispatch", "recover capture device"))
			return
		}
		switch s.driver.Recover(devErr) {
		case RecoverOK:
			continue
		case RecoverRetryLater:
			return
		case RecoverFatal:
			s.failLocked(errors.WrapFatal(devErr, "Stream", "Dispatch", "recover capture device"))
			return
		}
	}
}

func (s *Stream) pauseLocked() {
	if s.state != StreamReady {
		return
	}
	s.state = StreamPaused
	s.metrics.recordPause()
	if err := s.driver.Pause(); err != nil {
		s.logger.Warn("device pause failed", "error", err)
	}
	s.logger.Debug("capture paused", "buffered", s.ring.Available())
}

// resumeOnMonitor runs on the monitor goroutine. It is a no-op unless
// the stream is still paused by the time it runs.
func (s *Stream) resumeOnMonitor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StreamPaused {
		return
	}
	s.state = StreamReady
	s.metrics.recordResume()
	if err := s.driver.Resume(); err != nil {
		s.logger.Warn("device resume failed", "error", err)
	}
	s.logger.Debug("capture resumed", "free", s.ring.Free())
}

func (s *Stream) setEOFLocked() {
	if s.state == StreamEOF || s.state == StreamErrored {
		return
	}
	s.state = StreamEOF
	s.logger.Info("capture stream ended")
	s.cond.Broadcast()
}

func (s *Stream) failLocked(err error) {
	if s.state == StreamErrored {
		return
	}
	s.state = StreamErrored
	s.err = err
	s.metrics.recordDrainError()
	s.logger.Error("capture stream aborted", "error", err)
	s.cond.Broadcast()
}

// Read copies buffered PCM bytes into p. It blocks until data is
// available, the stream ends, or an error is stored. A stored error is
// returned on every call once raised. Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	waited := false
	for {
		if s.state == StreamErrored {
			err := s.err
			s.mu.Unlock()
			return 0, err
		}
		if s.closed {
			s.mu.Unlock()
			return 0, errors.ErrStreamClosed
		}
		if s.ring.Available() > 0 {
			break
		}
		if s.state == StreamEOF {
			s.mu.Unlock()
			return 0, io.EOF
		}
		if !waited {
			waited = true
			s.metrics.recordConsumerWait()
		}
		s.cond.Wait()
	}

	n := 0
	for n < len(p) {
		region := s.ring.ReadRegion()
		if len(region) == 0 {
			break
		}
		c := copy(p[n:], region)
		if err := s.ring.Consume(c); err != nil {
			s.mu.Unlock()
			return n, err
		}
		n += c
	}
	s.offset += int64(n)
	s.metrics.recordBuffered(s.ring.Available())

	needResume := s.state == StreamPaused && s.ring.ResumeReady()
	s.mu.Unlock()

	if needResume {
		s.monitor.Inject(s.resumeOnMonitor)
	}
	return n, nil
}

// Seek reports the current stream position without moving it. Capture
// streams are not seekable; seek requests succeed as no-ops so that
// probing consumers keep working.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, nil
}

// Close stops the monitor, releases the device and unblocks any reader.
// It is idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.monitor.Stop()
	err := s.driver.Close()
	s.metrics.cleanup()
	s.logger.Info("capture stream closed")
	if err != nil {
		return errors.Wrap(err, "Stream", "Close", "close capture device")
	}
	return nil
}

// State reports the current stream state.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MimeType describes the raw PCM payload, including the negotiated
// format string.
func (s *Stream) MimeType() string { return s.mimeType }

// Device returns the device name the stream captures from.
func (s *Stream) Device() string { return s.spec.Device }

// Params returns the negotiated capture parameters.
func (s *Stream) Params() NegotiatedParams { return s.params }

// Available reports the number of buffered bytes ready for Read.
func (s *Stream) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Available()
}
