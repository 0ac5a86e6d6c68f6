// Package portaudio captures PCM from local audio hardware through the
// PortAudio host API and exposes it as an input.CaptureDriver. Source
// URIs use the portaudio:// scheme with a device name or index.
package portaudio

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/errors"
	"github.com/c360/audiostreams/input"
	"github.com/c360/audiostreams/metric"
	"github.com/c360/audiostreams/pcm"
)

const (
	// Scheme is the URI scheme this plugin claims.
	Scheme = "portaudio"
	// Prefix is the full URI prefix.
	Prefix = "portaudio://"

	framesPerBuffer = 1024
	queueDepth      = 32
)

var alwaysReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Driver is an input.CaptureDriver over one PortAudio input stream. The
// PortAudio callback runs on a host thread and hands converted chunks to
// the monitor through a bounded queue; a full queue marks an overrun
// that the recovery table clears with a restart.
type Driver struct {
	mu     sync.Mutex
	state  input.DeviceState
	stream *portaudio.Stream
	device *portaudio.DeviceInfo
	flags  config.OpenFlags
	format pcm.Format

	queue         *input.ChunkQueue
	pollInterval  time.Duration
	pausedOverrun bool
	initialized   bool
	closed        bool

	logger *slog.Logger
}

// NewDriver returns an unopened driver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		queue:  input.NewChunkQueue(queueDepth),
		logger: logger.With("driver", "portaudio"),
	}
}

// Open initializes the host API and resolves the named device. An empty
// name or "default" selects the default input device; a numeric name
// selects a device by index.
func (d *Driver) Open(device string, flags config.OpenFlags) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return errors.WrapTransient(err, "Driver", "Open", "initialize host API")
	}
	d.initialized = true

	info, err := lookupDevice(device)
	if err != nil {
		return err
	}
	if info.MaxInputChannels <= 0 {
		return errors.WrapInvalid(errors.ErrDeviceUnavailable, "Driver", "Open",
			"device has no input channels")
	}

	d.device = info
	d.flags = flags
	d.state = input.DeviceOpen
	return nil
}

func lookupDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || strings.EqualFold(name, "default") {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, errors.WrapTransient(err, "Driver", "Open", "resolve default device")
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errors.WrapTransient(err, "Driver", "Open", "list devices")
	}
	if index, convErr := strconv.Atoi(name); convErr == nil {
		if index < 0 || index >= len(devices) {
			return nil, errors.WrapInvalid(errors.ErrDeviceUnavailable, "Driver", "Open",
				"device index out of range")
		}
		return devices[index], nil
	}
	for _, info := range devices {
		if strings.EqualFold(info.Name, name) {
			return info, nil
		}
	}
	return nil, errors.WrapTransient(errors.ErrDeviceUnavailable, "Driver", "Open",
		"no such capture device")
}

// Configure negotiates the capture format against the device limits and
// opens the PortAudio stream. Sample formats the hardware cannot carry
// natively are widened when automatic format adaptation is enabled.
func (d *Driver) Configure(format pcm.Format) (input.NegotiatedParams, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return input.NegotiatedParams{}, errors.WrapInvalid(errors.ErrMissingConfig,
			"Driver", "Configure", "device not open")
	}
	d.state = input.DeviceSetup

	negotiated := format
	if negotiated.Channels > d.device.MaxInputChannels {
		if d.flags&config.NoAutoChannels != 0 {
			return input.NegotiatedParams{}, errors.WrapInvalid(errors.ErrUnsupportedFormat,
				"Driver", "Configure", "channel count exceeds device limit")
		}
		negotiated.Channels = d.device.MaxInputChannels
	}
	if d.flags&config.NoAutoResample != 0 &&
		float64(negotiated.SampleRate) != d.device.DefaultSampleRate {
		return input.NegotiatedParams{}, errors.WrapInvalid(errors.ErrUnsupportedFormat,
			"Driver", "Configure", "sample rate not native to device")
	}

	switch negotiated.Sample {
	case pcm.SampleS8, pcm.SampleS16, pcm.SampleS32, pcm.SampleFloat32:
	case pcm.SampleS24:
		if d.flags&config.NoAutoFormat != 0 {
			return input.NegotiatedParams{}, errors.WrapInvalid(errors.ErrUnsupportedFormat,
				"Driver", "Configure", "24 bit capture not supported natively")
		}
		negotiated.Sample = pcm.SampleS32
	default:
		return input.NegotiatedParams{}, errors.WrapInvalid(errors.ErrUnsupportedFormat,
			"Driver", "Configure", "unsupported sample format")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   d.device,
			Channels: negotiated.Channels,
			Latency:  d.device.DefaultHighInputLatency,
		},
		SampleRate:      float64(negotiated.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := d.openStream(params, negotiated.Sample)
	if err != nil {
		return input.NegotiatedParams{}, errors.Wrap(err, "Driver", "Configure", "open stream")
	}

	d.stream = stream
	d.format = negotiated
	d.pollInterval = 2 * time.Duration(framesPerBuffer) * time.Second /
		time.Duration(negotiated.SampleRate)
	d.state = input.DevicePrepared

	return input.NegotiatedParams{
		Format:     negotiated,
		FrameSize:  negotiated.FrameSize(),
		BufferSize: framesPerBuffer * 4 * negotiated.FrameSize(),
		PeriodSize: framesPerBuffer,
	}, nil
}

func (d *Driver) openStream(params portaudio.StreamParameters, sample pcm.SampleFormat) (*portaudio.Stream, error) {
	switch sample {
	case pcm.SampleS8:
		return portaudio.OpenStream(params, func(in []int8) {
			chunk := make([]byte, len(in))
			for i, s := range in {
				chunk[i] = byte(s)
			}
			d.enqueue(chunk)
		})
	case pcm.SampleS16:
		return portaudio.OpenStream(params, func(in []int16) {
			chunk := make([]byte, len(in)*2)
			for i, s := range in {
				binary.LittleEndian.PutUint16(chunk[i*2:], uint16(s))
			}
			d.enqueue(chunk)
		})
	case pcm.SampleS32:
		return portaudio.OpenStream(params, func(in []int32) {
			chunk := make([]byte, len(in)*4)
			for i, s := range in {
				binary.LittleEndian.PutUint32(chunk[i*4:], uint32(s))
			}
			d.enqueue(chunk)
		})
	default:
		return portaudio.OpenStream(params, func(in []float32) {
			chunk := make([]byte, len(in)*4)
			for i, s := range in {
				binary.LittleEndian.PutUint32(chunk[i*4:], math.Float32bits(s))
			}
			d.enqueue(chunk)
		})
	}
}

// enqueue runs on the PortAudio callback thread.
func (d *Driver) enqueue(chunk []byte) {
	if d.queue.Push(chunk) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case input.DeviceRunning:
		d.state = input.DeviceXrun
	case input.DevicePaused:
		d.pausedOverrun = true
	}
}

// Start begins capturing.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Driver", "Start", "stream not configured")
	}
	if err := d.stream.Start(); err != nil {
		return errors.WrapTransient(err, "Driver", "Start", "start stream")
	}
	d.state = input.DeviceRunning
	return nil
}

// Drain copies captured bytes into dst without blocking.
func (d *Driver) Drain(dst []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != input.DeviceRunning && d.state != input.DeviceDraining {
		return 0, &input.DeviceError{Code: d.state.String()}
	}
	n := d.queue.Fill(dst)
	if n == 0 {
		return 0, errors.ErrWouldBlock
	}
	return n, nil
}

// Recover clears the device state according to the recovery table.
func (d *Driver) Recover(devErr *input.DeviceError) input.RecoverOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	action := input.RecoveryActionFor(d.state)
	d.logger.Debug("device recovery", "state", d.state.String(), "action", action.String())

	switch action {
	case input.ActionNone:
		return input.RecoverOK
	case input.ActionUnpause:
		d.state = input.DeviceRunning
		return input.RecoverOK
	case input.ActionResume, input.ActionRestart:
		return d.restartLocked()
	default:
		return input.RecoverFatal
	}
}

// restartLocked re-prepares the stream from scratch, dropping queued
// data the way hardware drops its own buffer on an overrun reset.
func (d *Driver) restartLocked() input.RecoverOutcome {
	if d.stream == nil {
		return input.RecoverFatal
	}
	if err := d.stream.Stop(); err != nil {
		d.logger.Warn("stream stop during restart failed", "error", err)
	}
	d.queue.Clear()
	d.pausedOverrun = false
	if err := d.stream.Start(); err != nil {
		d.logger.Warn("stream restart failed", "error", err)
		return input.RecoverRetryLater
	}
	d.state = input.DeviceRunning
	return input.RecoverOK
}

// Pause marks the device paused. The hardware keeps capturing; if its
// queue overflows while paused the overrun surfaces on resume.
func (d *Driver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == input.DeviceRunning {
		d.state = input.DevicePaused
	}
	return nil
}

// Resume lifts a pause. An overrun accumulated while paused moves the
// device to the xrun state so the next drain recovers it.
func (d *Driver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != input.DevicePaused && d.state != input.DeviceSuspended {
		return nil
	}
	if d.pausedOverrun {
		d.pausedOverrun = false
		d.state = input.DeviceXrun
		return nil
	}
	d.state = input.DeviceRunning
	return nil
}

// State reports the current device state.
func (d *Driver) State() input.DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Prepare returns the monitor wait plan. Pending data wakes the monitor
// immediately; otherwise it waits for the callback signal with a
// period-sized timeout.
func (d *Driver) Prepare() input.WaitPlan {
	if d.queue.Pending() > 0 {
		return input.WaitPlan{Ready: alwaysReady, Timeout: -1}
	}
	d.mu.Lock()
	timeout := d.pollInterval
	d.mu.Unlock()
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return input.WaitPlan{Ready: d.queue.Ready(), Timeout: timeout}
}

// Close stops the stream and releases the host API. Idempotent.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.state = input.DeviceDisconnected

	var firstErr error
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			firstErr = err
		}
		if err := d.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.stream = nil
	}
	if d.initialized {
		if err := portaudio.Terminate(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.initialized = false
	}
	if firstErr != nil {
		return errors.Wrap(firstErr, "Driver", "Close", "release device")
	}
	return nil
}

// Plugin builds the registry entry for the portaudio scheme.
func Plugin(cfg config.InputConfig, logger *slog.Logger, metrics metric.Registrar) input.Plugin {
	return input.Plugin{
		Name:   Scheme,
		Prefix: Prefix,
		Open: func(ctx context.Context, uri string) (*input.Stream, error) {
			spec := input.ParseSourceSpec(uri, Prefix, cfg)
			if !spec.SchemeValid() {
				return nil, nil
			}
			if err := spec.Validate(); err != nil {
				return nil, err
			}
			return input.OpenStream(ctx, input.StreamDeps{
				Plugin:  Scheme,
				Spec:    spec,
				Driver:  NewDriver(logger),
				Config:  cfg,
				Logger:  logger,
				Metrics: metrics,
			})
		},
	}
}
