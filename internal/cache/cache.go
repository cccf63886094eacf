// Package cache memoizes upstream provider responses for a bounded time.
//
// Entries hold raw response bytes. Every hit is decoded afresh by the caller,
// so no cached value is ever shared or mutated between requests.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/astrocast/astrocast/internal/httputil"
	"github.com/astrocast/astrocast/internal/metrics"
	"github.com/astrocast/astrocast/internal/store"
)

// Provider TTLs.
const (
	ForecastTTL  = 30 * time.Minute
	NASATTL      = 60 * time.Minute
	GeocodeTTL   = 60 * time.Minute
	PollutionTTL = 10 * time.Minute
)

// Backend stores payloads by key until an expiry time.
type Backend interface {
	GetCachedResponse(key string, now time.Time) ([]byte, bool, error)
	PutCachedResponse(key, provider string, payload []byte, expiresAt time.Time) error
}

// Auditor records each upstream call that the cache could not serve.
type Auditor interface {
	StartFetchRun(provider, endpoint string) (*store.FetchRun, error)
	CompleteFetchRun(run *store.FetchRun) error
}

// Request identifies a cacheable upstream call.
type Request struct {
	Provider string
	Endpoint string
	Params   url.Values
	TTL      time.Duration
}

// Key builds the cache key for provider, endpoint and parameters. Parameter
// order does not matter; secrets must not be included in params.
func Key(provider, endpoint string, params url.Values) string {
	var b strings.Builder
	b.WriteString(provider)
	b.WriteByte(':')
	b.WriteString(endpoint)
	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(strings.ToLower(params.Encode()))
	}
	return b.String()
}

type Cache struct {
	backend Backend
	auditor Auditor
	logger  zerolog.Logger
	group   singleflight.Group
	now     func() time.Time
}

type Option func(*Cache)

// WithAuditor records upstream calls made on cache misses.
func WithAuditor(a Auditor) Option {
	return func(c *Cache) { c.auditor = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(backend Backend, logger zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		logger:  logger.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached payload for req or calls fetch and stores its
// result. Concurrent misses for the same key share one upstream call.
// Failed fetches are never cached.
func (c *Cache) Fetch(ctx context.Context, req Request, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	key := Key(req.Provider, req.Endpoint, req.Params)

	if req.TTL > 0 && c.backend != nil {
		payload, ok, err := c.backend.GetCachedResponse(key, c.now())
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		} else if ok {
			metrics.CacheLookupsTotal.WithLabelValues(req.Provider, "hit").Inc()
			return payload, nil
		}
		metrics.CacheLookupsTotal.WithLabelValues(req.Provider, "miss").Inc()
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		payload, err := c.call(ctx, req, fetch)
		if err != nil {
			return nil, err
		}
		if req.TTL > 0 && c.backend != nil {
			if err := c.backend.PutCachedResponse(key, req.Provider, payload, c.now().Add(req.TTL)); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) call(ctx context.Context, req Request, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var run *store.FetchRun
	if c.auditor != nil {
		var err error
		run, err = c.auditor.StartFetchRun(req.Provider, req.Endpoint)
		if err != nil {
			c.logger.Warn().Err(err).Msg("start fetch run")
		}
	}

	start := time.Now()
	payload, err := fetch(ctx)
	elapsed := time.Since(start)

	status := StatusLabel(err)
	metrics.ProviderCallsTotal.WithLabelValues(req.Provider, req.Endpoint, status).Inc()
	metrics.ProviderLatency.WithLabelValues(req.Provider, req.Endpoint).Observe(elapsed.Seconds())

	if run != nil {
		run.Success = err == nil
		run.DurationMS = sql.NullInt64{Int64: elapsed.Milliseconds(), Valid: true}
		if err == nil {
			run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
			run.ResponseSizeBytes = sql.NullInt64{Int64: int64(len(payload)), Valid: true}
		} else {
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			var statusErr *httputil.StatusError
			if errors.As(err, &statusErr) {
				run.HTTPStatus = sql.NullInt64{Int64: int64(statusErr.StatusCode), Valid: true}
			}
		}
		if cerr := c.auditor.CompleteFetchRun(run); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("complete fetch run")
		}
	}

	if err != nil {
		c.logger.Debug().Err(err).Str("provider", req.Provider).Str("endpoint", req.Endpoint).
			Dur("elapsed", elapsed).Msg("upstream call failed")
		return nil, err
	}
	return payload, nil
}

// StatusLabel maps a fetch error to a metrics label.
func StatusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var statusErr *httputil.StatusError
	switch {
	case errors.As(err, &statusErr):
		return strconv.Itoa(statusErr.StatusCode)
	case errors.Is(err, httputil.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
