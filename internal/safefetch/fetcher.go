package safefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/fileerr"
)

const (
	// DefaultTimeout bounds a single fetch end to end.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes caps how much of a response body is buffered.
	DefaultMaxBytes = int64(100 << 20)
)

// Fetcher performs bounded, single-request GETs of caller-supplied URLs.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	blocked  func(string) bool
	logger   pslog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout overrides the per-fetch deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes overrides the body cap. Bodies longer than n are truncated to
// n+1 bytes so the size validator can reject them.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithURLFilter replaces IsBlocked. Intended for tests that fetch from a
// loopback httptest server.
func WithURLFilter(blocked func(string) bool) Option {
	return func(f *Fetcher) {
		if blocked != nil {
			f.blocked = blocked
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l pslog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher returns a Fetcher whose client never follows redirects.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
		blocked:  IsBlocked,
		logger:   pslog.NoopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client = &http.Client{
		Transport: transport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func transport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{}
	}
	return base.Clone()
}

// Fetch downloads raw. Every failure, including a refused URL, is a
// FileFetchError.
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	if f.blocked(raw) {
		f.logger.Warn("fetch.blocked", "url", raw)
		return nil, fileerr.FetchFailed(raw, "URL targets a blocked or internal address", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fileerr.FetchFailed(raw, "invalid request: "+err.Error(), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fileerr.FetchFailed(raw, fmt.Sprintf("timed out after %s", f.timeout), err)
		}
		return nil, fileerr.FetchFailed(raw, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := strings.TrimSpace(resp.Header.Get("Location"))
		return nil, fileerr.FetchFailed(raw, fmt.Sprintf("redirect %s to %q not followed", resp.Status, loc), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fileerr.FetchFailed(raw, "unexpected status "+resp.Status, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fileerr.FetchFailed(raw, fmt.Sprintf("timed out after %s", f.timeout), err)
		}
		return nil, fileerr.FetchFailed(raw, "read body: "+err.Error(), err)
	}
	f.logger.Debug("fetch.done", "url", raw, "status", resp.StatusCode, "bytes", len(data))
	return data, nil
}
