// Package fetch downloads generated assets with bounded retries and sends
// provider POSTs with a raw-socket fallback for hosts the standard transport
// cannot reach.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultBackoffStep    = 2 * time.Second
	DefaultAttemptTimeout = 60 * time.Second
	DefaultGetTimeout     = 30 * time.Second
	DefaultPostTimeout    = 180 * time.Second
	DefaultSocketTimeout  = 120 * time.Second

	maxBodyBytes = 512 << 20
	userAgent    = "frameforge-agent"
)

// StatusError is a non-2xx download response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Fetcher struct {
	client         *http.Client
	maxRetries     int
	backoffStep    time.Duration
	attemptTimeout time.Duration
	getTimeout     time.Duration
	postTimeout    time.Duration
	socketTimeout  time.Duration
	logger         *slog.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoffStep sets the linear backoff unit: attempt N waits N*step.
func WithBackoffStep(d time.Duration) Option {
	return func(f *Fetcher) { f.backoffStep = d }
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.attemptTimeout = d }
}

// WithGetTimeout bounds a single Get, such as one status poll.
func WithGetTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.getTimeout = d }
}

func WithPostTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.postTimeout = d }
}

func WithSocketTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.socketTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         &http.Client{},
		maxRetries:     DefaultMaxRetries,
		backoffStep:    DefaultBackoffStep,
		attemptTimeout: DefaultAttemptTimeout,
		getTimeout:     DefaultGetTimeout,
		postTimeout:    DefaultPostTimeout,
		socketTimeout:  DefaultSocketTimeout,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download fetches url, retrying up to maxRetries times with linear backoff.
// Each attempt runs under its own timeout.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		data, err := f.downloadOnce(ctx, url)
		if err == nil {
			if attempt > 1 {
				f.logger.Info("download succeeded after retry", "attempt", attempt)
			}
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.logger.Warn("download attempt failed",
			"attempt", attempt,
			"max_attempts", f.maxRetries,
			"error", err,
		)

		if attempt < f.maxRetries {
			if err := f.sleep(ctx, time.Duration(attempt)*f.backoffStep); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("download failed after %d attempts: %w", f.maxRetries, lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// Get issues a single GET over the primary transport under the get timeout.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.getTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, headers)
	return f.do(req)
}

// PostJSON sends body to url. When the primary HTTP stack fails before any
// response arrives, the request is sent once more over a raw socket. HTTP
// error responses, and failures after response headers arrived, are
// returned as-is and never re-sent.
func (f *Fetcher) PostJSON(ctx context.Context, url string, headers map[string]string, body []byte) (*Response, error) {
	resp, err := f.postPrimary(ctx, url, headers, body)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var nr *noResponseError
	if !errors.As(err, &nr) {
		return nil, err
	}

	f.logger.Warn("primary transport failed, retrying over raw socket", "error", err)

	resp, sockErr := f.postSocket(ctx, url, headers, body)
	if sockErr != nil {
		return nil, &TransportError{Primary: err, Fallback: sockErr}
	}
	return resp, nil
}

func (f *Fetcher) postPrimary(ctx context.Context, url string, headers map[string]string, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.postTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setHeaders(req, headers)
	return f.do(req)
}

func (f *Fetcher) do(req *http.Request) (*Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &noResponseError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// noResponseError marks a send that got no response at all.
type noResponseError struct {
	err error
}

func (e *noResponseError) Error() string { return e.err.Error() }
func (e *noResponseError) Unwrap() error { return e.err }

// TransportError is returned when both the primary stack and the socket
// fallback failed to get a response.
type TransportError struct {
	Primary  error
	Fallback error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed on both transports: %v; socket fallback: %v", e.Primary, e.Fallback)
}

func (e *TransportError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

func setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsTransport reports whether err came from failing to reach the remote end
// rather than from a response.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	return !errors.As(err, &se)
}
