package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"
)

// ErrOffline marks transport failures: the LMS could not be reached at all.
// Callers classify it with errors.Is to surface a "server offline" state.
var ErrOffline = errors.New("httpx: lms unreachable")

// HTTPError carries status/body for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, redactURL(e.URL), e.StatusCode, snippet(e.Body, 900))
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// redactURL hides the ws token so it never reaches logs.
func redactURL(raw string) string {
	i := strings.Index(raw, "wstoken=")
	if i < 0 {
		return raw
	}
	end := strings.IndexByte(raw[i:], '&')
	if end < 0 {
		return raw[:i] + "wstoken=REDACTED"
	}
	return raw[:i] + "wstoken=REDACTED" + raw[i+end:]
}

// RetryConfig controls retry behavior.
//
// The LMS client runs with MaxAttempts=1: retrying is the orchestrator's call,
// not the adapter's.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// AttemptTimeout bounds a single round trip. Zero means no per-attempt bound.
	AttemptTimeout time.Duration

	// If true, retry any 5xx.
	Retry5xx bool

	// Extra statuses to retry (e.g. 429, 408).
	RetryStatuses map[int]bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests: true, // 429
			http.StatusRequestTimeout:  true, // 408
		},
	}
}

// SingleAttempt is the adapter's config: one try, bounded by timeout.
func SingleAttempt(timeout time.Duration) RetryConfig {
	return RetryConfig{MaxAttempts: 1, AttemptTimeout: timeout}
}

// Doer executes requests against one upstream, optionally rate limited.
type Doer struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
	Retry   RetryConfig
}

// NewDoer builds a Doer with a pooled transport. rps <= 0 disables limiting.
func NewDoer(timeout time.Duration, rps float64, burst int) *Doer {
	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	d := &Doer{
		HTTP:  &http.Client{Transport: tr},
		Retry: SingleAttempt(timeout),
	}
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		d.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return d
}

// Do runs buildReq under the Doer's limiter and retry config.
func (d *Doer) Do(ctx context.Context, buildReq func(context.Context) (*http.Request, error)) (*http.Response, []byte, error) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("httpx: rate limiter: %w", err)
		}
	}
	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return DoWithRetry(ctx, client, buildReq, d.Retry)
}

// DoWithRetry executes a request (built by buildReq) with retries.
// It always reads the full body (even on error) so the underlying TCP connection
// can be reused by http.Transport.
func DoWithRetry(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		resp, body, err := doOnce(ctx, client, buildReq, cfg.AttemptTimeout)
		if err == nil {
			return resp, body, nil
		}
		lastErr = err

		var herr *HTTPError
		retryable := false
		var retryAfter time.Duration
		switch {
		case errors.As(err, &herr):
			retryable = isRetryableStatus(herr.StatusCode, cfg)
			if resp != nil {
				retryAfter = ParseRetryAfter(resp)
			}
		case errors.Is(err, ErrOffline):
			retryable = ctx.Err() == nil
		}
		if !retryable || attempt == cfg.MaxAttempts {
			return resp, body, err
		}
		if err := sleepBackoff(ctx, attempt, cfg.BaseDelay, cfg.MaxDelay, retryAfter); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, lastErr
}

func doOnce(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	timeout time.Duration,
) (*http.Response, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := buildReq(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		// url.Error embeds the raw URL, token included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		if isTransportErr(err) {
			return nil, nil, fmt.Errorf("%w: %s %s: %v", ErrOffline, req.Method, redactURL(req.URL.String()), err)
		}
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, redactURL(req.URL.String()), err)
	}

	body, err := readAndClose(resp.Body)
	if err != nil {
		if isTransportErr(err) {
			return resp, body, fmt.Errorf("%w: read body: %v", ErrOffline, err)
		}
		return resp, body, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, body, nil
	}
	return resp, body, &HTTPError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

func isRetryableStatus(code int, cfg RetryConfig) bool {
	if cfg.RetryStatuses != nil && cfg.RetryStatuses[code] {
		return true
	}
	if cfg.Retry5xx && code >= 500 && code <= 599 {
		return true
	}
	return false
}

func sleepBackoff(ctx context.Context, attempt int, base, max time.Duration, retryAfter time.Duration) error {
	sleep := retryAfter
	if sleep <= 0 {
		sleep = base * time.Duration(1<<(attempt-1))
		if sleep > max {
			sleep = max
		}
		// jitter 0..250ms
		sleep += time.Duration(rand.Intn(250)) * time.Millisecond
	}

	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isTransportErr reports failures where no usable HTTP exchange happened.
// Caller cancellation is not a transport failure.
func isTransportErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var operr *net.OpError
	if errors.As(err, &operr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof")
}

// IsOffline reports whether err stems from the LMS being unreachable.
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}

// ParseRetryAfter parses Retry-After header (seconds or HTTP date).
// Returns 0 when header is missing/invalid.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}

// DoJSON runs the request through d and unmarshals the body into out.
func (d *Doer) DoJSON(ctx context.Context, buildReq func(context.Context) (*http.Request, error), out any) error {
	_, body, err := d.Do(ctx, buildReq)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json parse error: %w body=%s", err, snippet(body, 900))
	}
	return nil
}

// Retry runs fn up to cfg.MaxAttempts times with the same backoff as requests.
// Only errors accepted by retryable are retried.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts || (retryable != nil && !retryable(err)) || ctx.Err() != nil {
			return err
		}
		if serr := sleepBackoff(ctx, attempt, cfg.BaseDelay, cfg.MaxDelay, 0); serr != nil {
			return err
		}
	}
	return err
}
