package input

import (
	"fmt"
	"time"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/pcm"
)

// DeviceState is the lifecycle state of a capture device as reported by
// its driver. The recovery table keys on this state, not on the error
// value that triggered recovery.
type DeviceState int

const (
	DeviceOpen DeviceState = iota
	DeviceSetup
	DevicePrepared
	DeviceRunning
	DeviceXrun
	DeviceDraining
	DevicePaused
	DeviceSuspended
	DeviceDisconnected
)

// String returns a short lowercase name for logging.
func (s DeviceState) String() string {
	switch s {
	case DeviceOpen:
		return "open"
	case DeviceSetup:
		return "setup"
	case DevicePrepared:
		return "prepared"
	case DeviceRunning:
		return "running"
	case DeviceXrun:
		return "xrun"
	case DeviceDraining:
		return "draining"
	case DevicePaused:
		return "paused"
	case DeviceSuspended:
		return "suspended"
	case DeviceDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RecoveryAction is what a driver should do to bring a device out of a
// given state.
type RecoveryAction int

const (
	// ActionNone means the device is already healthy; recovery is a no-op
	// that reports success.
	ActionNone RecoveryAction = iota
	// ActionUnpause clears a device-level pause.
	ActionUnpause
	// ActionResume wakes a suspended device; the device may report that it
	// is not ready yet, in which case recovery is retried later.
	ActionResume
	// ActionRestart re-prepares and restarts the device from scratch,
	// discarding any device-side buffered data.
	ActionRestart
	// ActionFatal means the device cannot be recovered.
	ActionFatal
)

// String returns a short lowercase name for logging.
func (a RecoveryAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionUnpause:
		return "unpause"
	case ActionResume:
		return "resume"
	case ActionRestart:
		return "restart"
	case ActionFatal:
		return "fatal"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

var recoveryActions = map[DeviceState]RecoveryAction{
	DeviceOpen:         ActionRestart,
	DeviceSetup:        ActionRestart,
	DevicePrepared:     ActionNone,
	DeviceRunning:      ActionNone,
	DeviceXrun:         ActionRestart,
	DeviceDraining:     ActionNone,
	DevicePaused:       ActionUnpause,
	DeviceSuspended:    ActionResume,
	DeviceDisconnected: ActionFatal,
}

// RecoveryActionFor maps a device state to the action that recovers it.
// States with no healthy mapping recover as fatal.
func RecoveryActionFor(state DeviceState) RecoveryAction {
	action, ok := recoveryActions[state]
	if !ok {
		return ActionFatal
	}
	return action
}

// RecoverOutcome is the result of a driver recovery attempt.
type RecoverOutcome int

const (
	// RecoverOK means the device is healthy again and draining may resume
	// immediately.
	RecoverOK RecoverOutcome = iota
	// RecoverRetryLater means the device is not ready yet; the caller
	// should back off and retry on a later dispatch.
	RecoverRetryLater
	// RecoverFatal means the device is gone and the stream must abort.
	RecoverFatal
)

// DeviceError is a device-level failure that the recovery table may be
// able to clear. Drivers return it from Drain when the device entered a
// recoverable state such as an overrun or a suspend.
type DeviceError struct {
	Code string
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device error (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("device error (%s)", e.Code)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// WaitPlan tells the readiness monitor how to wait for the next batch of
// captured data. Ready may be nil when the driver has no readiness
// channel; Timeout < 0 means no timeout is requested.
type WaitPlan struct {
	Ready   <-chan struct{}
	Timeout time.Duration
}

// NegotiatedParams describes what the device actually agreed to after
// Configure. The format may differ from the requested one when the
// device was opened with automatic conversions enabled.
type NegotiatedParams struct {
	Format     pcm.Format
	FrameSize  int
	BufferSize int
	PeriodSize int
}

// CaptureDriver is the capability surface a capture backend exposes to
// the stream layer. All methods are called from the stream's monitor
// goroutine or from OpenStream; drivers synchronize internally only
// against their own capture threads.
//
// Drain fills dst with whole frames without blocking and returns the
// byte count. It returns ErrWouldBlock when no data is pending, io.EOF
// when the source ended normally, and *DeviceError when the device
// entered a state the recovery table may clear.
type CaptureDriver interface {
	// Open acquires the named device. An empty name selects the backend
	// default.
	Open(device string, flags config.OpenFlags) error

	// Configure negotiates the capture format and prepares the device.
	Configure(format pcm.Format) (NegotiatedParams, error)

	// Start begins capturing.
	Start() error

	// Drain copies pending captured bytes into dst without blocking.
	Drain(dst []byte) (int, error)

	// Recover attempts to clear the device state that produced err,
	// following the recovery table.
	Recover(err *DeviceError) RecoverOutcome

	// Pause and Resume adjust device-level flow. Both are idempotent.
	Pause() error
	Resume() error

	// State reports the current device state.
	State() DeviceState

	// Prepare returns how the monitor should wait for the next data.
	Prepare() WaitPlan

	// Close releases the device. Safe to call more than once.
	Close() error
}
