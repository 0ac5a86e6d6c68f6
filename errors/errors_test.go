package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.class.String())
	}
}

func TestWrap_Format(t *testing.T) {
	base := stderrors.New("device busy")
	err := Wrap(base, "portaudio", "Open", "device claim")

	require.Error(t, err)
	assert.Equal(t, "portaudio.Open: device claim failed: device busy", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestClassifiedWrappers(t *testing.T) {
	base := stderrors.New("boom")

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"transient", WrapTransient(base, "c", "m", "a"), ErrorTransient},
		{"invalid", WrapInvalid(base, "c", "m", "a"), ErrorInvalid},
		{"fatal", WrapFatal(base, "c", "m", "a"), ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *ClassifiedError
			require.True(t, stderrors.As(tt.err, &ce))
			assert.Equal(t, tt.want, ce.Class)
			assert.Equal(t, "c", ce.Component)
			assert.True(t, stderrors.Is(tt.err, base))
		})
	}
}

func TestClassify_SentinelErrors(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorClass
	}{
		{ErrInvalidSpec, ErrorInvalid},
		{ErrUnsupportedFormat, ErrorInvalid},
		{ErrMalformedStructure, ErrorInvalid},
		{ErrDeviceGone, ErrorFatal},
		{ErrWouldBlock, ErrorTransient},
		{stderrors.New("device was suspended"), ErrorTransient},
		{stderrors.New("something else entirely"), ErrorTransient},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "error: %v", tt.err)
	}
}

func TestClassify_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("open pcm: %w", ErrDeviceUnavailable)
	assert.True(t, stderrors.Is(err, ErrDeviceUnavailable))

	// Classification survives another Wrap layer.
	wrapped := WrapInvalid(err, "portaudio", "Open", "device claim")
	assert.True(t, IsInvalid(wrapped))
	assert.True(t, stderrors.Is(wrapped, ErrDeviceUnavailable))
}

func TestIsHelpers_NilError(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
}
