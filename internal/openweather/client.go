// Package openweather wraps the OpenWeatherMap forecast, geocoding and air
// pollution APIs.
package openweather

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

	"github.com/astrocast/astrocast/internal/cache"
	"github.com/astrocast/astrocast/internal/httputil"
	"github.com/astrocast/astrocast/internal/models"
)

const (
	// ProviderName identifies this provider in metrics and the fetch audit.
	ProviderName = "openweather"

	DefaultBaseURL = "https://api.openweathermap.org"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("openweather: API key not configured")
	// ErrCityNotFound is returned when the provider cannot resolve a city.
	ErrCityNotFound = errors.New("openweather: city not found")
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key.
	APIKey string

	// BaseURL overrides https://api.openweathermap.org, mainly for tests.
	BaseURL string

	// HTTPClient defaults to a resilient client named after the provider.
	HTTPClient *httputil.Client

	// Cache memoizes responses; nil disables caching.
	Cache *cache.Cache

	Logger zerolog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httputil.Client
	cache      *cache.Cache
	logger     zerolog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httputil.NewResilient(httputil.DefaultConfig(ProviderName))
	}

	c := cache.New(nil, cfg.Logger)
	if cfg.Cache != nil {
		c = cfg.Cache
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      c,
		logger:     cfg.Logger.With().Str("component", "openweather").Logger(),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Forecast fetches the 5-day/3-hour forecast for a city name.
func (c *Client) Forecast(ctx context.Context, city string) (*models.CityForecast, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(city))
	params.Set("units", "metric")

	body, err := c.get(ctx, "/data/2.5/forecast", "forecast", params, cache.ForecastTTL)
	if err != nil {
		return nil, err
	}
	return parseForecast(body)
}

// ForecastByCoords fetches the 5-day/3-hour forecast for a point.
func (c *Client) ForecastByCoords(ctx context.Context, lat, lon float64) (*models.CityForecast, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("units", "metric")

	body, err := c.get(ctx, "/data/2.5/forecast", "forecast", params, cache.ForecastTTL)
	if err != nil {
		return nil, err
	}
	return parseForecast(body)
}

// Geocode resolves a city name to its first match.
func (c *Client) Geocode(ctx context.Context, city string) (*models.Location, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(city))
	params.Set("limit", "1")

	body, err := c.get(ctx, "/geo/1.0/direct", "geocode", params, cache.GeocodeTTL)
	if err != nil {
		return nil, err
	}

	var results []geocodeResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	}
	r := results[0]
	return &models.Location{Name: r.Name, Country: r.Country, Latitude: r.Lat, Longitude: r.Lon}, nil
}

// AirPollution fetches current air quality for a point.
func (c *Client) AirPollution(ctx context.Context, lat, lon float64) (*models.AirQuality, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))

	body, err := c.get(ctx, "/data/2.5/air_pollution", "air_pollution", params, cache.PollutionTTL)
	if err != nil {
		return nil, err
	}

	var resp airPollutionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding air pollution response: %w", err)
	}
	if len(resp.List) == 0 {
		return nil, fmt.Errorf("openweather: empty air pollution response")
	}

	entry := resp.List[0]
	return &models.AirQuality{
		Location:   models.Location{Latitude: lat, Longitude: lon},
		AQI:        entry.Main.AQI,
		Components: entry.Components,
		FetchedAt:  time.Unix(entry.Dt, 0).UTC(),
	}, nil
}

// get fetches path through the cache. The API key is added after the cache
// key is derived so it never appears in stored keys.
func (c *Client) get(ctx context.Context, path, endpoint string, params url.Values, ttl time.Duration) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req := cache.Request{Provider: ProviderName, Endpoint: endpoint, Params: params, TTL: ttl}
	body, err := c.cache.Fetch(ctx, req, func(ctx context.Context) ([]byte, error) {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("appid", c.apiKey)
		return c.httpClient.GetBytes(ctx, c.baseURL+path+"?"+q.Encode(), nil)
	})
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrCityNotFound, params.Get("q"))
		}
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return nil, fmt.Errorf("openweather %s: %w", endpoint, err)
	}
	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
