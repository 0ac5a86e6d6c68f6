package tagfetch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/errors"
	"github.com/c360/audiostreams/pkg/tlsutil"
)

// Handler receives the outcome of a tag scan. Exactly one of the two
// callbacks fires per scan, unless the scan was cancelled.
type Handler interface {
	OnRemoteTag(TagRecord)
	OnRemoteTagError(error)
}

// TrackScanner fetches metadata for one track and delivers the outcome
// to a Handler.
type TrackScanner interface {
	Scan(ctx context.Context, trackID string, h Handler)
}

// RemoteError is a structured error returned by the metadata endpoint.
type RemoteError struct {
	Status  int
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error (status %d, code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote error (status %d)", e.Status)
}

func (e *RemoteError) Unwrap() error { return errors.ErrRemoteProtocol }

// Scanner fetches track metadata from the remote endpoint and extracts
// tag fields from the streamed response body.
type Scanner struct {
	client  *http.Client
	baseURL string
	appID   string
	token   string
	logger  *slog.Logger
}

// NewScanner builds a scanner for the configured endpoint.
func NewScanner(cfg config.RemoteConfig, logger *slog.Logger) (*Scanner, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Scanner", "NewScanner", "remote base_url not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.TLS.Enabled() {
		tlsConfig, err := tlsutil.LoadClientConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		client.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	return &Scanner{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		appID:   cfg.AppID,
		token:   cfg.Token,
		logger:  logger.With("component", "tagfetch"),
	}, nil
}

// trackURL builds the track lookup URL for one track identifier.
func (s *Scanner) trackURL(trackID string) string {
	params := url.Values{}
	params.Set("track_id", trackID)
	if s.appID != "" {
		params.Set("app_id", s.appID)
	}
	return s.baseURL + "/track/get?" + params.Encode()
}

// Scan fetches metadata for one track and delivers the result to h. It
// blocks until the response is fully handled; run it on its own
// goroutine for fire-and-forget scans. A cancelled ctx discards any
// partial parse without invoking either callback. Scan never retries;
// retry policy belongs to the caller.
func (s *Scanner) Scan(ctx context.Context, trackID string, h Handler) {
	scanID := uuid.NewString()
	logger := s.logger.With("scan_id", scanID, "track_id", trackID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.trackURL(trackID), nil)
	if err != nil {
		h.OnRemoteTagError(errors.WrapInvalid(err, "Scanner", "Scan", "build request"))
		return
	}
	if s.token != "" {
		req.Header.Set("X-User-Auth-Token", s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if cancelled(ctx, err) {
			logger.Debug("scan cancelled")
			return
		}
		h.OnRemoteTagError(errors.WrapTransient(err, "Scanner", "Scan", "request track metadata"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.OnRemoteTagError(s.parseRemoteError(resp))
		return
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "/json") {
		h.OnRemoteTagError(errors.WrapInvalid(errors.ErrRemoteProtocol,
			"Scanner", "Scan", "response is not JSON"))
		return
	}

	record, err := NewExtractor().FeedJSON(resp.Body)
	if err != nil {
		if cancelled(ctx, err) {
			logger.Debug("scan cancelled during parse")
			return
		}
		h.OnRemoteTagError(err)
		return
	}

	logger.Debug("scan complete", "fields", len(record.Items))
	h.OnRemoteTag(record)
}

// parseRemoteError reads the structured error payload of a non-200
// response. An unrecognizable body still yields a typed error carrying
// the status code.
func (s *Scanner) parseRemoteError(resp *http.Response) error {
	remote := &RemoteError{Status: resp.StatusCode}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	body := io.LimitReader(resp.Body, 64*1024)
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		remote.Code = payload.Code
		remote.Message = payload.Message
	}
	return remote
}

// cancelled reports whether err stems from ctx being cancelled or timed
// out.
func cancelled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
