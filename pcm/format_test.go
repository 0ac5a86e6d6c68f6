package pcm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/audiostreams/errors"
)

func TestParseFormat_Valid(t *testing.T) {
	tests := []struct {
		in        string
		rate      int
		sample    SampleFormat
		channels  int
		frameSize int
	}{
		{"48000:16:2", 48000, SampleS16, 2, 4},
		{"44100:24:2", 44100, SampleS24, 2, 8},
		{"96000:32:8", 96000, SampleS32, 8, 32},
		{"22050:8:1", 22050, SampleS8, 1, 1},
		{"48000:f:2", 48000, SampleFloat32, 2, 8},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.rate, f.SampleRate)
			assert.Equal(t, tt.sample, f.Sample)
			assert.Equal(t, tt.channels, f.Channels)
			assert.Equal(t, tt.frameSize, f.FrameSize())
			assert.True(t, f.Valid())
		})
	}
}

func TestParseFormat_Invalid(t *testing.T) {
	tests := []string{
		"",
		"48000",
		"48000:16",
		"48000:16:2:extra",
		"abc:16:2",
		"48000:12:2",
		"48000:16:0",
		"48000:16:999",
		"10:16:2", // rate below floor
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFormat(in)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestFormat_TimeToSize(t *testing.T) {
	f, err := ParseFormat("48000:16:2")
	require.NoError(t, err)

	// 1 second of 48kHz stereo 16-bit = 192000 bytes.
	assert.Equal(t, 192000, f.TimeToSize(time.Second))
	assert.Equal(t, 96000, f.TimeToSize(500*time.Millisecond))

	// Result is always a whole number of frames.
	assert.Equal(t, 0, f.TimeToSize(time.Microsecond)%f.FrameSize())
}

func TestFormat_Roundtrip(t *testing.T) {
	for _, s := range []string{"48000:16:2", "44100:f:1", "96000:24:6"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, s, f.String())
	}
}
