// Package httputil provides the HTTP clients used to reach upstream weather,
// climate and geocoding providers.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

const DefaultTimeout = 30 * time.Second

var (
	// ErrCircuitOpen is returned while a provider's breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// Config configures a resilient client.
type Config struct {
	// Name identifies the upstream in breaker state and errors.
	Name string
	// Timeout bounds each attempt. Default: 10s
	Timeout time.Duration
	// MaxRetries counts retries after the first attempt. Default: 3
	MaxRetries uint64
	// InitialInterval is the first backoff delay. Default: 100ms
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay. Default: 5s
	MaxInterval time.Duration
	// BreakerTimeout is how long the breaker stays open. Default: 60s
	BreakerTimeout time.Duration
	// Transport overrides the underlying round tripper, mainly for tests.
	Transport http.RoundTripper
}

// DefaultConfig returns the defaults used for JSON weather APIs.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		BreakerTimeout:  60 * time.Second,
	}
}

// Client retries transient failures with exponential backoff and stops
// calling an upstream that keeps failing.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     Config
}

// NewResilient builds a Client from cfg, filling zero fields with defaults.
func NewResilient(cfg Config) *Client {
	def := DefaultConfig(cfg.Name)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	})

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: breaker,
		cfg:     cfg,
	}
}

// StatusError is a non-2xx response from an upstream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Do executes req, retrying network errors and 5xx responses. Any response
// returned has a status below 500; the caller closes its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	var resp *http.Response
	op := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				body, _ := io.ReadAll(io.LimitReader(r.Body, 512))
				r.Body.Close()
				return nil, &StatusError{StatusCode: r.StatusCode, Body: string(body)}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%s: %w", c.cfg.Name, ErrCircuitOpen))
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBytes performs a GET and returns the body of a 2xx response. Client
// errors are returned as *StatusError without retrying.
func (c *Client) GetBytes(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	return body, nil
}

// State reports the breaker state, e.g. for health output.
func (c *Client) State() string {
	return c.breaker.State().String()
}

// Name returns the configured upstream name.
func (c *Client) Name() string {
	return c.cfg.Name
}
