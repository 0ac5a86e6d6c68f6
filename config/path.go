package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/c360/audiostreams/errors"
)

// ParsePath resolves a configured filesystem path. Supported forms:
//
//	~              current user's home directory
//	~/rest         relative to the current user's home
//	~user/rest     relative to another user's home
//	$HOME/rest     same as ~/rest
//	$XDG_CONFIG_HOME/rest, $XDG_CACHE_HOME/rest,
//	$XDG_MUSIC_DIR/rest, $XDG_RUNTIME_DIR/rest
//	/absolute/rest passed through unchanged
//
// Anything else is rejected: relative paths in configuration are ambiguous
// once the daemon has changed its working directory.
func ParsePath(path string) (string, error) {
	switch {
	case path == "":
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: empty path", errors.ErrInvalidConfig),
			"config", "ParsePath", "path validation")

	case path[0] == '~':
		return expandTilde(path[1:])

	case path[0] == '$':
		return expandVariable(path[1:])

	case filepath.IsAbs(path):
		return path, nil

	default:
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: not an absolute path: %q", errors.ErrInvalidConfig, path),
			"config", "ParsePath", "path validation")
	}
}

func expandTilde(rest string) (string, error) {
	if rest == "" {
		return currentHome()
	}

	if rest[0] == '/' {
		home, err := currentHome()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, rest[1:]), nil
	}

	// ~user or ~user/rest
	name, tail, _ := strings.Cut(rest, "/")
	u, err := user.Lookup(name)
	if err != nil {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: no such user: %q", errors.ErrInvalidConfig, name),
			"config", "ParsePath", "user lookup")
	}
	return filepath.Join(u.HomeDir, tail), nil
}

func expandVariable(rest string) (string, error) {
	name, tail, _ := strings.Cut(rest, "/")

	var base string
	var err error
	switch name {
	case "HOME":
		base, err = currentHome()
	case "XDG_CONFIG_HOME":
		base, err = xdgDir("XDG_CONFIG_HOME", ".config")
	case "XDG_CACHE_HOME":
		base, err = xdgDir("XDG_CACHE_HOME", ".cache")
	case "XDG_MUSIC_DIR":
		base, err = xdgDir("XDG_MUSIC_DIR", "Music")
	case "XDG_RUNTIME_DIR":
		base = os.Getenv("XDG_RUNTIME_DIR")
		if base == "" {
			err = errors.WrapInvalid(
				fmt.Errorf("%w: XDG_RUNTIME_DIR not set", errors.ErrInvalidConfig),
				"config", "ParsePath", "runtime dir lookup")
		}
	default:
		err = errors.WrapInvalid(
			fmt.Errorf("%w: environment variable not supported: %q",
				errors.ErrInvalidConfig, name),
			"config", "ParsePath", "variable expansion")
	}
	if err != nil {
		return "", err
	}

	return filepath.Join(base, tail), nil
}

func currentHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: cannot determine home directory", errors.ErrInvalidConfig),
			"config", "ParsePath", "home lookup")
	}
	return home, nil
}

// xdgDir resolves an XDG base directory, falling back to the conventional
// location under the user's home when the variable is unset.
func xdgDir(env, fallback string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return dir, nil
	}
	home, err := currentHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback), nil
}
