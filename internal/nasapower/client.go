// Package nasapower reads daily point climatology from the NASA POWER API.
package nasapower

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/astrocast/astrocast/internal/cache"
	"github.com/astrocast/astrocast/internal/httputil"
)

const (
	ProviderName   = "nasapower"
	DefaultBaseURL = "https://power.larc.nasa.gov"

	dailyPointPath = "/api/temporal/daily/point"
	dayLayout      = "20060102"
)

// Missing is the fill value NASA POWER uses for absent observations.
const Missing = -999.0

// ErrNoData is returned when the requested day has fill values only.
var ErrNoData = errors.New("nasapower: no data for requested period")

type ClientConfig struct {
	BaseURL    string
	HTTPClient *httputil.Client
	Cache      *cache.Cache
	Logger     zerolog.Logger
}

type Client struct {
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
		hc := httputil.DefaultConfig(ProviderName)
		hc.Timeout = 15 * time.Second
		httpClient = httputil.NewResilient(hc)
	}
	c := cfg.Cache
	if c == nil {
		c = cache.New(nil, cfg.Logger)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      c,
		logger:     cfg.Logger.With().Str("component", "nasapower").Logger(),
	}
}

// MonthlyAverage holds the mean of the valid daily values in one month.
// A nil field means every day in the month was a fill value.
type MonthlyAverage struct {
	Year          int
	Month         int
	Precipitation *float64 // PRECTOTCORR, mm/day
	Temperature   *float64 // T2M, degC
	Days          int
}

// MonthlyAverages fetches daily precipitation and temperature for the whole
// calendar month and averages the valid values.
func (c *Client) MonthlyAverages(ctx context.Context, lat, lon float64, year, month int) (*MonthlyAverage, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("nasapower: invalid month %d", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	body, err := c.fetch(ctx, lat, lon, start, end, "PRECTOTCORR,T2M")
	if err != nil {
		return nil, err
	}

	params := gjson.GetBytes(body, "properties.parameter")
	if !params.Exists() {
		return nil, fmt.Errorf("nasapower: response missing properties.parameter")
	}

	precip, precipDays := mean(params.Get("PRECTOTCORR"))
	temp, tempDays := mean(params.Get("T2M"))

	return &MonthlyAverage{
		Year:          year,
		Month:         month,
		Precipitation: precip,
		Temperature:   temp,
		Days:          max(precipDays, tempDays),
	}, nil
}

// DailyPoint is a single day's temperature, wind and humidity at 2m.
type DailyPoint struct {
	Date        time.Time
	Temperature float64 // T2M, degC
	WindSpeed   float64 // WS2M, m/s
	Humidity    float64 // RH2M, %
}

// Daily fetches one day. It returns ErrNoData if any value is a fill value.
func (c *Client) Daily(ctx context.Context, lat, lon float64, day time.Time) (*DailyPoint, error) {
	body, err := c.fetch(ctx, lat, lon, day, day, "T2M,WS2M,RH2M")
	if err != nil {
		return nil, err
	}

	params := gjson.GetBytes(body, "properties.parameter")
	values := make(map[string]float64, 3)
	for _, name := range []string{"T2M", "WS2M", "RH2M"} {
		v, ok := first(params.Get(name))
		if !ok || v == Missing {
			return nil, ErrNoData
		}
		values[name] = v
	}

	return &DailyPoint{
		Date:        day,
		Temperature: values["T2M"],
		WindSpeed:   values["WS2M"],
		Humidity:    values["RH2M"],
	}, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64, start, end time.Time, parameters string) ([]byte, error) {
	params := url.Values{}
	params.Set("parameters", parameters)
	params.Set("community", "RE")
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("start", start.Format(dayLayout))
	params.Set("end", end.Format(dayLayout))
	params.Set("format", "JSON")

	req := cache.Request{Provider: ProviderName, Endpoint: "temporal/daily/point", Params: params, TTL: cache.NASATTL}
	body, err := c.cache.Fetch(ctx, req, func(ctx context.Context) ([]byte, error) {
		return c.httpClient.GetBytes(ctx, c.baseURL+dailyPointPath+"?"+params.Encode(), nil)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("start", start.Format(dayLayout)).Msg("request failed")
		return nil, fmt.Errorf("nasapower: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("nasapower: invalid JSON response")
	}
	return body, nil
}

// mean averages the values of a date-keyed object, skipping fill values.
func mean(series gjson.Result) (*float64, int) {
	var sum float64
	var n int
	series.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.Number && v.Float() != Missing {
			sum += v.Float()
			n++
		}
		return true
	})
	if n == 0 {
		return nil, 0
	}
	avg := sum / float64(n)
	return &avg, n
}

func first(series gjson.Result) (float64, bool) {
	var val float64
	var found bool
	series.ForEach(func(_, v gjson.Result) bool {
		val, found = v.Float(), v.Type == gjson.Number
		return false
	})
	return val, found
}
