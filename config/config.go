// Package config loads and validates process-wide configuration for the
// audiostreams daemon: capture input defaults, driver open-mode toggles,
// remote metadata endpoint settings, and filesystem path expansion.
//
// Configuration is an explicit struct handed to each constructor; there is no
// package-level singleton. Components receive the sub-config they need and
// nothing else.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/audiostreams/errors"
	"github.com/c360/audiostreams/pcm"
	"github.com/c360/audiostreams/pkg/tlsutil"
)

// Builtin fallbacks applied when the configuration file does not override them.
const (
	BuiltinDefaultDevice = "default"
	BuiltinDefaultFormat = "48000:16:2"

	DefaultBufferTime = time.Second
)

// OpenFlags alters how a capture driver opens its device. Each flag disables
// one automatic conversion the driver would otherwise perform.
type OpenFlags uint

const (
	// NoAutoResample disables hardware/driver resampling.
	NoAutoResample OpenFlags = 1 << iota
	// NoAutoChannels disables channel-count adaptation.
	NoAutoChannels
	// NoAutoFormat disables sample-format adaptation.
	NoAutoFormat
)

// Config is the complete application configuration.
type Config struct {
	Input  InputConfig  `yaml:"input"`
	Remote RemoteConfig `yaml:"remote"`
	Log    LogConfig    `yaml:"log"`
}

// InputConfig configures the capture input layer.
type InputConfig struct {
	// DefaultDevice is substituted when a source URI has an empty device
	// segment.
	DefaultDevice string `yaml:"default_device"`

	// DefaultFormat is substituted when a source URI carries no format
	// parameter, in "rate:bits:channels" notation.
	DefaultFormat string `yaml:"default_format"`

	// BufferTime sizes the stream ring buffer.
	BufferTime time.Duration `yaml:"buffer_time"`

	// ResumeTime sizes the resume watermark: a paused stream resumes once the
	// consumer has freed this much buffered audio. Defaults to BufferTime/2.
	ResumeTime time.Duration `yaml:"resume_time"`

	// Driver open-mode toggles. Each false value maps to one OpenFlags bit.
	AutoResample bool `yaml:"auto_resample"`
	AutoChannels bool `yaml:"auto_channels"`
	AutoFormat   bool `yaml:"auto_format"`
}

// RemoteConfig configures the remote track metadata endpoint.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	AppID   string        `yaml:"app_id"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`

	// TLS customizes transport security for the endpoint. Empty settings
	// use the default system trust.
	TLS tlsutil.ClientConfig `yaml:"tls"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the builtin configuration. Load starts from these values so
// that absent file keys keep their defaults.
func Default() Config {
	return Config{
		Input: InputConfig{
			DefaultDevice: BuiltinDefaultDevice,
			DefaultFormat: BuiltinDefaultFormat,
			BufferTime:    DefaultBufferTime,
			ResumeTime:    0, // derived from BufferTime in Validate
			AutoResample:  true,
			AutoChannels:  true,
			AutoFormat:    true,
		},
		Remote: RemoteConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file, applying defaults for absent keys,
// and validates the result. The path may use the expansion syntax understood
// by ParsePath.
func Load(path string) (Config, error) {
	resolved, err := ParsePath(path)
	if err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "Load", "path resolution")
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "Load", "file read")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "Load", "yaml parsing")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.Input.DefaultDevice == "" {
		c.Input.DefaultDevice = BuiltinDefaultDevice
	}
	if c.Input.DefaultFormat == "" {
		c.Input.DefaultFormat = BuiltinDefaultFormat
	}
	if _, err := pcm.ParseFormat(c.Input.DefaultFormat); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: default_format %q", errors.ErrInvalidConfig, c.Input.DefaultFormat),
			"config", "Validate", "default format parsing")
	}

	if c.Input.BufferTime <= 0 {
		c.Input.BufferTime = DefaultBufferTime
	}
	if c.Input.ResumeTime <= 0 {
		c.Input.ResumeTime = c.Input.BufferTime / 2
	}
	if c.Input.ResumeTime > c.Input.BufferTime {
		return errors.WrapInvalid(
			fmt.Errorf("%w: resume_time %v exceeds buffer_time %v",
				errors.ErrInvalidConfig, c.Input.ResumeTime, c.Input.BufferTime),
			"config", "Validate", "watermark validation")
	}

	if c.Remote.BaseURL != "" && !strings.Contains(c.Remote.BaseURL, "://") {
		return errors.WrapInvalid(
			fmt.Errorf("%w: remote base_url %q has no scheme",
				errors.ErrInvalidConfig, c.Remote.BaseURL),
			"config", "Validate", "remote endpoint validation")
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 10 * time.Second
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: log level %q", errors.ErrInvalidConfig, c.Log.Level),
			"config", "Validate", "log level validation")
	}

	return nil
}

// OpenFlags maps the auto-conversion toggles to driver open-mode bits. A
// disabled toggle sets the corresponding bit.
func (ic InputConfig) OpenFlags() OpenFlags {
	var flags OpenFlags
	if !ic.AutoResample {
		flags |= NoAutoResample
	}
	if !ic.AutoChannels {
		flags |= NoAutoChannels
	}
	if !ic.AutoFormat {
		flags |= NoAutoFormat
	}
	return flags
}
