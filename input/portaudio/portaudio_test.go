package portaudio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/input"
)

func pluginConfig() config.InputConfig {
	return config.InputConfig{
		DefaultDevice: "default",
		DefaultFormat: "48000:16:2",
	}
}

func TestPlugin_IgnoresOtherSchemes(t *testing.T) {
	p := Plugin(pluginConfig(), nil, nil)
	s, err := p.Open(context.Background(), "file:///tmp/a.wav")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestPlugin_RejectsBadFormat(t *testing.T) {
	p := Plugin(pluginConfig(), nil, nil)
	_, err := p.Open(context.Background(), "portaudio://mic?format=bogus")
	require.Error(t, err)
}

func TestDriver_PauseResume(t *testing.T) {
	d := NewDriver(nil)
	d.state = input.DeviceRunning

	require.NoError(t, d.Pause())
	assert.Equal(t, input.DevicePaused, d.State())

	require.NoError(t, d.Resume())
	assert.Equal(t, input.DeviceRunning, d.State())
}

func TestDriver_ResumeAfterPausedOverrun(t *testing.T) {
	d := NewDriver(nil)
	d.state = input.DevicePaused
	d.pausedOverrun = true

	require.NoError(t, d.Resume())
	assert.Equal(t, input.DeviceXrun, d.State())
}

func TestDriver_DrainOutsideRunningReturnsDeviceError(t *testing.T) {
	d := NewDriver(nil)
	d.state = input.DevicePaused

	_, err := d.Drain(make([]byte, 16))
	var devErr *input.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "paused", devErr.Code)
}

func TestDriver_OverflowMarksXrun(t *testing.T) {
	d := NewDriver(nil)
	d.state = input.DeviceRunning

	for i := 0; i <= queueDepth; i++ {
		d.enqueue([]byte{0x01, 0x02})
	}
	assert.Equal(t, input.DeviceXrun, d.State())
}
