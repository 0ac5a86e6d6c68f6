package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/audiostreams/errors"
)

func TestParsePath_Absolute(t *testing.T) {
	got, err := ParsePath("/var/lib/audiostreams")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/audiostreams", got)
}

func TestParsePath_Tilde(t *testing.T) {
	t.Setenv("HOME", "/home/alice")

	got, err := ParsePath("~")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice", got)

	got, err = ParsePath("~/music/capture")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/alice", "music", "capture"), got)
}

func TestParsePath_HomeVariable(t *testing.T) {
	t.Setenv("HOME", "/home/alice")

	got, err := ParsePath("$HOME/.audiostreams.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/.audiostreams.yaml", got)
}

func TestParsePath_XDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/home/alice/.cfg")

	got, err := ParsePath("$XDG_CONFIG_HOME/audiostreams/daemon.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/.cfg/audiostreams/daemon.yaml", got)
}

func TestParsePath_XDGFallback(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	t.Setenv("XDG_CACHE_HOME", "")

	got, err := ParsePath("$XDG_CACHE_HOME/audiostreams")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/.cache/audiostreams", got)
}

func TestParsePath_Rejected(t *testing.T) {
	tests := []string{
		"",
		"relative/path",
		"$UNSUPPORTED_VAR/x",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := ParsePath(in)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestParsePath_UnknownUser(t *testing.T) {
	_, err := ParsePath("~no-such-user-hopefully/x")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
