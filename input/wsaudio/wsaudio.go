// Package wsaudio captures PCM pushed by a remote endpoint over a
// WebSocket connection. Source URIs use the wsaudio:// scheme with a
// host, port and path; binary messages carry raw frames in the
// negotiated format and a normal close ends the stream.
package wsaudio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/errors"
	"github.com/c360/audiostreams/input"
	"github.com/c360/audiostreams/metric"
	"github.com/c360/audiostreams/pcm"
)

const (
	// Scheme is the URI scheme this plugin claims.
	Scheme = "wsaudio"
	// Prefix is the full URI prefix.
	Prefix = "wsaudio://"

	handshakeTimeout = 10 * time.Second
	queueDepth       = 64
)

var alwaysReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Driver is an input.CaptureDriver over one WebSocket connection. A
// reader goroutine queues incoming binary messages; the remote ending
// the connection with a normal close surfaces as end of stream, any
// other failure disconnects the device.
type Driver struct {
	mu    sync.Mutex
	state input.DeviceState
	conn  *websocket.Conn
	queue *input.ChunkQueue

	format        pcm.Format
	eof           bool
	pausedOverrun bool
	closed        bool

	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDriver returns an unopened driver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		queue:  input.NewChunkQueue(queueDepth),
		logger: logger.With("driver", "wsaudio"),
	}
}

// Open dials the remote endpoint. The device token is the host, port
// and path portion of the source URI.
func (d *Driver) Open(device string, flags config.OpenFlags) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if device == "" {
		return errors.WrapInvalid(errors.ErrInvalidSpec, "Driver", "Open",
			"wsaudio source needs a host and path")
	}

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial("ws://"+device, nil)
	if err != nil {
		return errors.WrapTransient(err, "Driver", "Open", "dial remote endpoint")
	}

	d.conn = conn
	d.state = input.DeviceOpen
	return nil
}

// Configure records the agreed format. The remote is authoritative for
// the byte stream, so there is nothing to negotiate.
func (d *Driver) Configure(format pcm.Format) (input.NegotiatedParams, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return input.NegotiatedParams{}, errors.WrapInvalid(errors.ErrMissingConfig,
			"Driver", "Configure", "connection not open")
	}
	d.format = format
	d.state = input.DevicePrepared
	return input.NegotiatedParams{
		Format:    format,
		FrameSize: format.FrameSize(),
	}, nil
}

// Start launches the reader goroutine.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Driver", "Start", "connection not open")
	}
	d.state = input.DeviceRunning
	d.wg.Add(1)
	go d.readLoop(d.conn)
	return nil
}

func (d *Driver) readLoop(conn *websocket.Conn) {
	defer d.wg.Done()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			d.mu.Lock()
			switch {
			case d.closed:
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				d.eof = true
			default:
				d.logger.Warn("remote connection lost", "error", err)
				d.state = input.DeviceDisconnected
			}
			d.mu.Unlock()
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if d.queue.Push(data) {
			continue
		}
		d.mu.Lock()
		switch d.state {
		case input.DeviceRunning:
			d.state = input.DeviceXrun
		case input.DevicePaused:
			d.pausedOverrun = true
		}
		d.mu.Unlock()
	}
}

// Drain copies queued bytes into dst without blocking. Once the remote
// has closed normally and the queue is empty it reports io.EOF.
func (d *Driver) Drain(dst []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != input.DeviceRunning && d.state != input.DeviceDraining {
		return 0, &input.DeviceError{Code: d.state.String()}
	}
	n := d.queue.Fill(dst)
	if n == 0 {
		if d.eof {
			return 0, io.EOF
		}
		return 0, errors.ErrWouldBlock
	}
	return n, nil
}

// Recover clears the device state according to the recovery table. A
// lost connection is not recoverable.
func (d *Driver) Recover(devErr *input.DeviceError) input.RecoverOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	action := input.RecoveryActionFor(d.state)
	d.logger.Debug("device recovery", "state", d.state.String(), "action", action.String())

	switch action {
	case input.ActionNone:
		return input.RecoverOK
	case input.ActionUnpause, input.ActionResume:
		d.state = input.DeviceRunning
		return input.RecoverOK
	case input.ActionRestart:
		d.queue.Clear()
		d.pausedOverrun = false
		d.state = input.DeviceRunning
		return input.RecoverOK
	default:
		return input.RecoverFatal
	}
}

// Pause marks the device paused; the reader keeps queuing until the
// queue overflows.
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

// Prepare returns the monitor wait plan.
func (d *Driver) Prepare() input.WaitPlan {
	if d.queue.Pending() > 0 {
		return input.WaitPlan{Ready: alwaysReady, Timeout: -1}
	}
	return input.WaitPlan{Ready: d.queue.Ready(), Timeout: 100 * time.Millisecond}
}

// Close drops the connection and waits for the reader to exit.
// Idempotent.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.state = input.DeviceDisconnected
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	d.wg.Wait()
	if err != nil {
		return errors.Wrap(err, "Driver", "Close", "close connection")
	}
	return nil
}

// Plugin builds the registry entry for the wsaudio scheme.
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
