package lichessfast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client issues the one-shot Board API commands.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	// held serves requests the remote keeps open; it aborts on ctx cancel.
	held    *http.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	seekTimeout    time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithSeekTimeout bounds how long a real-time seek may stay open waiting
// for an opponent.
func WithSeekTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.seekTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithToken(token string) Option {
	return WithHeaderProvider(func() map[string]string { return BearerHeaders(token) })
}

// WithRetry sets the attempt budget of idempotent reads. Commands are never retried.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{MaxConnsPerHost: 16},
		held:           &http.Client{},
		defaultTimeout: 10 * time.Second,
		seekTimeout:    5 * time.Minute,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Account resolves the user behind the token.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var acc Account
	err := c.do(ctx, request{method: fasthttp.MethodGet, path: AccountPath, out: &acc, retry: true})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(acc.ID) == "" {
		return nil, errors.New("account response without id")
	}
	return &acc, nil
}

// SubmitMove plays move (UCI) in gameID.
func (c *Client) SubmitMove(ctx context.Context, gameID, move string) error {
	return c.do(ctx, request{method: fasthttp.MethodPost, path: movePath(gameID, move)})
}

// CreateSeek posts a real-time seek. The remote holds the request open until
// the seek is accepted, so it runs under the seek timeout. Cancelling ctx
// drops the connection, which withdraws the seek on the remote side.
func (c *Client) CreateSeek(ctx context.Context, params SeekParams) error {
	return c.doHeld(ctx, request{
		method:      http.MethodPost,
		path:        SeekPath,
		contentType: "application/x-www-form-urlencoded",
		body:        []byte(params.form().Encode()),
		timeout:     c.seekTimeout,
	})
}

type request struct {
	method      string
	path        string
	contentType string
	body        []byte
	out         any
	retry       bool
	timeout     time.Duration
}

func (c *Client) do(ctx context.Context, r request) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(r.method)
	req.SetRequestURI(c.baseURL + r.path)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.SetContentType(r.contentType)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if r.body != nil {
		req.SetBody(r.body)
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	attempts := 1
	if r.retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, computeDeadline(ctx, timeout))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if !commandOK(status) {
			lastErr = &CommandError{Method: r.method, Path: r.path, Status: status, Body: truncate(string(resp.Body()), 512)}
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if r.out != nil {
			if err := json.Unmarshal(resp.Body(), r.out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// doHeld sends r over net/http so that ctx cancellation closes the
// connection mid-request. It is never retried.
func (c *Client) doHeld(ctx context.Context, r request) error {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bytes.NewReader(r.body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	resp, err := c.held.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if !commandOK(resp.StatusCode) {
		return &CommandError{Method: r.method, Path: r.path, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return nil
}

// commandOK reports the statuses the Board API uses for success.
func commandOK(status int) bool {
	return status == http.StatusOK || status == http.StatusNoContent
}

func computeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	clientDL := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
