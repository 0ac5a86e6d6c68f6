package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/c360/audiostreams/config"
)

// resolveLogSettings merges file configuration with flags; a flag set
// explicitly on the command line wins over the file.
func resolveLogSettings(cliCfg *CLIConfig, fileCfg config.LogConfig) (level, format string) {
	level, format = cliCfg.LogLevel, cliCfg.LogFormat

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["log-level"] && fileCfg.Level != "" {
		level = fileCfg.Level
	}
	if !set["log-format"] && fileCfg.JSON {
		format = "json"
	}
	return level, format
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}
