package wsaudio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/input"
)

func pluginConfig() config.InputConfig {
	return config.InputConfig{
		DefaultDevice: "default",
		DefaultFormat: "8000:16:1",
		BufferTime:    100 * time.Millisecond,
		ResumeTime:    50 * time.Millisecond,
	}
}

// pcmServer upgrades one connection, pushes the given payload as binary
// messages and closes normally.
func pcmServer(t *testing.T, payloads ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
				return
			}
		}
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		// Wait for the peer's close reply so the handshake completes.
		_ = conn.SetReadDeadline(deadline)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestPlugin_IgnoresOtherSchemes(t *testing.T) {
	p := Plugin(pluginConfig(), nil, nil)
	s, err := p.Open(context.Background(), "portaudio://mic")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestPlugin_EndToEnd(t *testing.T) {
	want := make([]byte, 64)
	for i := range want {
		want[i] = byte(i)
	}
	ts := pcmServer(t, want[:32], want[32:])
	defer ts.Close()

	host := strings.TrimPrefix(ts.URL, "http://")
	p := Plugin(pluginConfig(), nil, nil)

	s, err := p.Open(context.Background(), "wsaudio://"+host+"?format=8000:16:1")
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()

	assert.Equal(t, "audio/x-wsaudio-pcm;format=8000:16:1", s.MimeType())

	got := make([]byte, 64)
	_, err = io.ReadFull(s, got)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Read(got)
	assert.Equal(t, io.EOF, err)
}

func TestDriver_OpenRequiresDevice(t *testing.T) {
	d := NewDriver(nil)
	assert.Error(t, d.Open("", 0))
}

func TestDriver_OpenUnreachableEndpoint(t *testing.T) {
	d := NewDriver(nil)
	err := d.Open("127.0.0.1:1/pcm", 0)
	require.Error(t, err)
}

func TestDriver_DrainOutsideRunningReturnsDeviceError(t *testing.T) {
	d := NewDriver(nil)
	d.state = input.DeviceDisconnected

	_, err := d.Drain(make([]byte, 16))
	var devErr *input.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "disconnected", devErr.Code)
}

func TestDriver_PauseResume(t *testing.T) {
	d := NewDriver(nil)
	d.state = input.DeviceRunning

	require.NoError(t, d.Pause())
	assert.Equal(t, input.DevicePaused, d.State())

	require.NoError(t, d.Resume())
	assert.Equal(t, input.DeviceRunning, d.State())
}
