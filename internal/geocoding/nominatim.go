// Package geocoding resolves place names and coordinates with Nominatim.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/astrocast/astrocast/internal/cache"
	"github.com/astrocast/astrocast/internal/httputil"
	"github.com/astrocast/astrocast/internal/models"
)

const (
	ProviderName     = "nominatim"
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "astrocast/1.0"
)

// Nominatim usage policy limits.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 500 * time.Millisecond
)

// ErrNotFound is returned when a query has no match.
var ErrNotFound = errors.New("geocoding: no results")

type Config struct {
	BaseURL   string
	UserAgent string
	// RequestsPerSecond defaults to 1.
	RequestsPerSecond float64
	HTTPClient        *httputil.Client
	Cache             *cache.Cache
	Logger            zerolog.Logger
}

// Geocoder converts place names to coordinates and back.
type Geocoder struct {
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	httpClient *httputil.Client
	cache      *cache.Cache
	logger     zerolog.Logger
}

func New(cfg Config) *Geocoder {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httputil.NewResilient(httputil.Config{
			Name:            ProviderName,
			Timeout:         DefaultTimeout,
			MaxRetries:      DefaultMaxRetries,
			InitialInterval: DefaultBackoffBase,
			MaxInterval:     4 * time.Second,
		})
	}
	c := cfg.Cache
	if c == nil {
		c = cache.New(nil, cfg.Logger)
	}
	return &Geocoder{
		baseURL:    baseURL,
		userAgent:  ua,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: httpClient,
		cache:      c,
		logger:     cfg.Logger.With().Str("component", "geocoding").Logger(),
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Address     struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Search resolves a free-form place name to its best match.
func (g *Geocoder) Search(ctx context.Context, query string) (*models.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	body, err := g.get(ctx, "/search", "search", params)
	if err != nil {
		return nil, err
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNotFound, query)
	}

	r := results[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude: %w", err)
	}

	name := r.Name
	if name == "" {
		name = r.DisplayName
	}
	return &models.Location{
		Name:      name,
		Country:   strings.ToUpper(r.Address.CountryCode),
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// Reverse returns the display address for a point.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 5, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 5, 64))
	params.Set("format", "json")
	params.Set("accept-language", "en")

	body, err := g.get(ctx, "/reverse", "reverse", params)
	if err != nil {
		return "", err
	}

	var r reverseResult
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if r.Error != "" || r.DisplayName == "" {
		return "", ErrNotFound
	}
	return r.DisplayName, nil
}

func (g *Geocoder) get(ctx context.Context, path, endpoint string, params url.Values) ([]byte, error) {
	req := cache.Request{Provider: ProviderName, Endpoint: endpoint, Params: params, TTL: cache.GeocodeTTL}
	body, err := g.cache.Fetch(ctx, req, func(ctx context.Context) ([]byte, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
		header := http.Header{}
		header.Set("User-Agent", g.userAgent)
		return g.httpClient.GetBytes(ctx, g.baseURL+path+"?"+params.Encode(), header)
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return nil, fmt.Errorf("nominatim %s: %w", endpoint, err)
	}
	return body, nil
}
