package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/c360/audiostreams/config"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath  string
	SourceURI   string
	OutputPath  string
	MetricsAddr string
	ScanTrack   string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("AUDIOSTREAMS_CONFIG", ""),
		"Path to configuration file (env: AUDIOSTREAMS_CONFIG)")

	flag.StringVar(&cfg.SourceURI, "uri",
		getEnv("AUDIOSTREAMS_URI", "portaudio://"),
		"Capture source URI, e.g. portaudio://mic0?format=48000:16:2 (env: AUDIOSTREAMS_URI)")

	flag.StringVar(&cfg.OutputPath, "out",
		getEnv("AUDIOSTREAMS_OUT", "discard"),
		"PCM output: file path, - for stdout, discard (env: AUDIOSTREAMS_OUT)")

	flag.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("AUDIOSTREAMS_METRICS_ADDR", ":9090"),
		"Prometheus metrics listen address, empty to disable (env: AUDIOSTREAMS_METRICS_ADDR)")

	flag.StringVar(&cfg.ScanTrack, "scan-track", "",
		"Scan remote metadata for the given track ids (comma-separated) and exit")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("AUDIOSTREAMS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: AUDIOSTREAMS_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("AUDIOSTREAMS_LOG_FORMAT", "text"),
		"Log format: json, text (env: AUDIOSTREAMS_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")

	flag.Usage = printDetailedHelp
	flag.Parse()
	return cfg
}

func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}
	return cliCfg, false, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.SourceURI == "" && cfg.ScanTrack == "" {
		return fmt.Errorf("either -uri or -scan-track is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	return nil
}

// loadConfig loads the configuration file, or the builtin defaults when
// no file was given.
func loadConfig(cliCfg *CLIConfig) (config.Config, error) {
	if cliCfg.ConfigPath == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - asynchronous PCM capture daemon

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Capture from the default audio device to a raw PCM file
  %s -uri "portaudio://?format=48000:16:2" -out capture.pcm

  # Capture from a remote WebSocket PCM source
  %s -uri "wsaudio://stream.example.net:9100/pcm" -out -

  # Scan remote metadata for one track
  %s -config ~/.config/audiostreams/config.yaml -scan-track 12345

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
