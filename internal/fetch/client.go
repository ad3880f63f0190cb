package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"jobglob-engine/internal/domain"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
}

type Options struct {
	Timeout    time.Duration
	UserAgents []string
	Limiter    *HostLimiter
	// Transport overrides the default round tripper; tests use httptest clients.
	Transport http.RoundTripper
}

// Client issues requests with a randomized User-Agent and per-host rate limiting.
type Client struct {
	hc         *http.Client
	userAgents []string
	limiter    *HostLimiter
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	uas := opts.UserAgents
	if len(uas) == 0 {
		uas = DefaultUserAgents
	}
	return &Client{
		hc:         &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		userAgents: uas,
		limiter:    opts.Limiter,
	}
}

type Response struct {
	Status     int
	RequestURL string
	FinalURL   string
	Body       []byte
}

func (r *Response) OK() bool { return r.Status >= 200 && r.Status <= 299 }

// Redirected reports whether the request ended somewhere other than where it started.
func (r *Response) Redirected() bool {
	return domain.NormalizeURL(r.FinalURL) != domain.NormalizeURL(r.RequestURL)
}

func (r *Response) Text() string { return string(r.Body) }

func (c *Client) UserAgent() string {
	return c.userAgents[rand.IntN(len(c.userAgents))]
}

func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req)
}

// PostJSON sends body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any) (*Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	if err := c.limiter.WaitURL(req.Context(), req.URL.String()); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.UserAgent())
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(req.Method), req.URL.Host, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL.Host, err)
	}

	return &Response{
		Status:     res.StatusCode,
		RequestURL: req.URL.String(),
		FinalURL:   res.Request.URL.String(),
		Body:       body,
	}, nil
}

// DecodeJSON unmarshals a successful response body into v.
func DecodeJSON(res *Response, v any) error {
	if !res.OK() {
		return &StatusError{Status: res.Status, URL: res.RequestURL}
	}
	if err := json.Unmarshal(res.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", res.RequestURL, err)
	}
	return nil
}

// StatusError is returned for non-2xx responses where a body was expected.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d from %s", e.Status, e.URL)
}
