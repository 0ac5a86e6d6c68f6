package input

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryActionFor(t *testing.T) {
	tests := []struct {
		state DeviceState
		want  RecoveryAction
	}{
		{DeviceOpen, ActionRestart},
		{DeviceSetup, ActionRestart},
		{DevicePrepared, ActionNone},
		{DeviceRunning, ActionNone},
		{DeviceXrun, ActionRestart},
		{DeviceDraining, ActionNone},
		{DevicePaused, ActionUnpause},
		{DeviceSuspended, ActionResume},
		{DeviceDisconnected, ActionFatal},
		{DeviceState(99), ActionFatal},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, RecoveryActionFor(tt.state))
		})
	}
}

func TestDeviceError(t *testing.T) {
	cause := fmt.Errorf("ring overflowed")
	err := &DeviceError{Code: "overrun", Err: cause}
	assert.Contains(t, err.Error(), "overrun")
	assert.True(t, stderrors.Is(err, cause))

	bare := &DeviceError{Code: "suspended"}
	assert.Equal(t, "device error (suspended)", bare.Error())
}
