// Package main implements the entry point for the audiostreams daemon.
// It opens an asynchronous capture stream for a source URI, exposes
// Prometheus metrics, and can scan remote track metadata.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/input"
	"github.com/c360/audiostreams/input/portaudio"
	"github.com/c360/audiostreams/input/wsaudio"
	"github.com/c360/audiostreams/metric"
	"github.com/c360/audiostreams/tagfetch"
)

const (
	Version = "0.1.0"
	appName = "audiostreamd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logLevel, logFormat := resolveLogSettings(cliCfg, cfg.Log)
	logger := setupLogger(logLevel, logFormat)
	slog.SetDefault(logger)

	slog.Info("starting audiostreamd",
		"version", Version,
		"source", cliCfg.SourceURI,
		"metrics_addr", cliCfg.MetricsAddr)

	metricsRegistry := metric.NewRegistry()

	if cliCfg.ScanTrack != "" {
		return scanTracks(cliCfg, cfg, logger, metricsRegistry)
	}

	registry := input.NewRegistry()
	if err := registry.Register(portaudio.Plugin(cfg.Input, logger, metricsRegistry)); err != nil {
		return fmt.Errorf("register portaudio plugin: %w", err)
	}
	if err := registry.Register(wsaudio.Plugin(cfg.Input, logger, metricsRegistry)); err != nil {
		return fmt.Errorf("register wsaudio plugin: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stream, err := registry.Open(ctx, cliCfg.SourceURI)
	if err != nil {
		return fmt.Errorf("open source %q: %w", cliCfg.SourceURI, err)
	}
	defer stream.Close()

	slog.Info("capture stream ready",
		"mime", stream.MimeType(),
		"device", stream.Device())

	sink, closeSink, err := openSink(cliCfg.OutputPath)
	if err != nil {
		return err
	}
	defer closeSink()

	group, groupCtx := errgroup.WithContext(ctx)

	if cliCfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:    cliCfg.MetricsAddr,
			Handler: metric.Handler(metricsRegistry),
		}
		group.Go(func() error {
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		return pump(groupCtx, stream, sink)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		// Unblocks a reader waiting on an idle device.
		return stream.Close()
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("audiostreamd shutdown complete")
	return nil
}

// pump copies captured PCM from the stream into the sink until the
// stream ends or ctx is cancelled.
func pump(ctx context.Context, stream *input.Stream, sink io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write captured audio: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Info("source ended")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read captured audio: %w", err)
		}
	}
}

func openSink(path string) (io.Writer, func(), error) {
	switch path {
	case "", "discard":
		return io.Discard, func() {}, nil
	case "-":
		return os.Stdout, func() {}, nil
	default:
		resolved, err := config.ParsePath(path)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve output path: %w", err)
		}
		f, err := os.Create(resolved)
		if err != nil {
			return nil, nil, fmt.Errorf("create output file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}
}

// scanTracks fetches metadata for the comma-separated track list and
// prints each result. Multiple tracks are scanned concurrently.
func scanTracks(cliCfg *CLIConfig, cfg config.Config, logger *slog.Logger, registrar metric.Registrar) error {
	scanner, err := tagfetch.NewScanner(cfg.Remote, logger)
	if err != nil {
		return fmt.Errorf("create tag scanner: %w", err)
	}

	trackIDs := strings.Split(cliCfg.ScanTrack, ",")

	ctx, cancel := context.WithTimeout(context.Background(),
		cfg.Remote.Timeout*time.Duration(len(trackIDs)))
	defer cancel()

	// The cache deduplicates repeated ids in the track list.
	cached := tagfetch.NewCachedScanner(scanner, len(trackIDs), 0)
	pool := tagfetch.NewScanPool(cached, 4, len(trackIDs), registrar)
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start scan pool: %w", err)
	}

	handler := &printHandler{}
	for _, id := range trackIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := pool.Submit(id, handler); err != nil {
			return fmt.Errorf("queue scan for track %q: %w", id, err)
		}
	}

	if err := pool.Stop(cfg.Remote.Timeout * time.Duration(len(trackIDs))); err != nil {
		return fmt.Errorf("wait for scans: %w", err)
	}
	return handler.firstErr()
}

type printHandler struct {
	mu  sync.Mutex
	err error
}

func (h *printHandler) OnRemoteTag(record tagfetch.TagRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, item := range record.Items {
		fmt.Printf("%s: %s\n", item.Kind, item.Value)
	}
	if record.Duration > 0 {
		fmt.Printf("duration: %s\n", record.Duration)
	}
}

func (h *printHandler) OnRemoteTagError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *printHandler) firstErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}
