// Package planner orchestrates forecasts, climatology, scoring and AI
// summaries into the answers served by the dashboard.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/forecast"
	"github.com/astrocast/astrocast/internal/metrics"
	"github.com/astrocast/astrocast/internal/models"
	"github.com/astrocast/astrocast/internal/nasapower"
)

var (
	ErrCityRequired  = errors.New("city is required")
	ErrNoForecast    = errors.New("no forecast data in window")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrInvalidMonth  = errors.New("month must be 1-12")
	ErrInvalidPoint  = errors.New("coordinates out of range")
	ErrTooManyCities = fmt.Errorf("at most %d cities can be compared", MaxCompareCities)

	errNoClimatology = errors.New("no climatology provider")
)

// Weather is the forecast and air quality provider.
type Weather interface {
	Forecast(ctx context.Context, city string) (*models.CityForecast, error)
	ForecastByCoords(ctx context.Context, lat, lon float64) (*models.CityForecast, error)
	Geocode(ctx context.Context, city string) (*models.Location, error)
	AirPollution(ctx context.Context, lat, lon float64) (*models.AirQuality, error)
}

// Climatology supplies monthly historical averages and daily observations.
type Climatology interface {
	MonthlyAverages(ctx context.Context, lat, lon float64, year, month int) (*nasapower.MonthlyAverage, error)
	Daily(ctx context.Context, lat, lon float64, day time.Time) (*nasapower.DailyPoint, error)
}

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string) (*models.Location, error)
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

type Config struct {
	Weather     Weather
	Climatology Climatology
	Geocoder    Geocoder
	Assistant   *ai.Assistant
	Logger      zerolog.Logger

	// ClimateWorkers bounds concurrent NASA POWER lookups. Default: 4
	ClimateWorkers int
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	weather   Weather
	climate   Climatology
	geo       Geocoder
	assistant *ai.Assistant
	logger    zerolog.Logger
	workers   int
	now       func() time.Time
}

func New(cfg Config) *Service {
	s := &Service{
		weather:   cfg.Weather,
		climate:   cfg.Climatology,
		geo:       cfg.Geocoder,
		assistant: cfg.Assistant,
		logger:    cfg.Logger.With().Str("component", "planner").Logger(),
		workers:   cfg.ClimateWorkers,
		now:       cfg.Now,
	}
	if s.workers <= 0 {
		s.workers = 4
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Assistant returns the AI front end, which may be unconfigured.
func (s *Service) Assistant() *ai.Assistant {
	return s.assistant
}

// Plan is the full assessment of one city on one day.
type Plan struct {
	City               string                    `json:"city"`
	Country            string                    `json:"country,omitempty"`
	Latitude           float64                   `json:"latitude"`
	Longitude          float64                   `json:"longitude"`
	RequestedDate      string                    `json:"requested_date"`
	UsedDate           string                    `json:"used_date"`
	Substituted        bool                      `json:"substituted"`
	Day                models.DailyAggregate     `json:"day"`
	Days               []models.DailyAggregate   `json:"days"`
	Condition          forecast.WeatherCondition `json:"condition"`
	RainProbability    float64                   `json:"rain_probability"`
	Historical         *models.HistoricalAverage `json:"historical,omitempty"`
	HistoricalFallback bool                      `json:"historical_fallback"`
	HistoricalError    string                    `json:"historical_error,omitempty"`
	Result             models.SuitabilityResult  `json:"result"`
	Suggestion         string                    `json:"suggestion"`
	Summary            string                    `json:"summary,omitempty"`
	ShareText          string                    `json:"share_text"`
	Palette            forecast.Palette          `json:"palette"`
}

// PlanOptions tune a single Plan call.
type PlanOptions struct {
	// Summary requests an AI summary when the assistant is configured.
	Summary bool
}

// Plan scores city for date (YYYY-MM-DD, empty for today in the city's
// timezone). A date outside the forecast window falls back to the nearest
// forecast day and the plan reports the substitution.
func (s *Service) Plan(ctx context.Context, city, date string, opts PlanOptions) (*Plan, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}
	if date != "" {
		if _, err := time.Parse(forecast.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}

	fc, err := s.weather.Forecast(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast for %s: %w", city, err)
	}
	if date == "" {
		date = forecast.LocalDate(s.now(), fc.TimezoneOffset, 0)
	}

	fb, ok := forecast.AggregateWithFallback(fc.Points, date)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", city, date, ErrNoForecast)
	}

	loc := s.locate(ctx, city, fc)
	p := &Plan{
		City:            displayName(city, fc),
		Country:         fc.Country,
		Latitude:        loc.Latitude,
		Longitude:       loc.Longitude,
		RequestedDate:   fb.RequestedDate,
		UsedDate:        fb.UsedDate,
		Substituted:     fb.Substituted,
		Day:             fb.Day,
		Days:            forecast.DailySummaries(fc.Points, 5),
		Condition:       forecast.ExtractCondition(fb.Day),
		RainProbability: forecast.RainProbability(fb.Day.Rain),
		Palette:         forecast.PaletteFor(fb.Day),
	}

	hist, err := s.historicalFor(ctx, p.City, loc, fb.UsedDate)
	if err != nil {
		s.logger.Warn().Err(err).Str("city", city).Msg("historical averages unavailable")
		p.HistoricalError = err.Error()
	}
	p.Historical = hist

	in := forecast.InputFromAggregate(fb.Day)
	var hin forecast.HistoricalInput
	hin, p.HistoricalFallback = historicalInput(hist, fb.Day)
	p.Result = forecast.Score(in, hin)
	p.Suggestion = forecast.Suggest(in)
	metrics.PlansComputed.WithLabelValues(string(p.Result.Verdict)).Inc()

	if opts.Summary && s.assistant != nil && s.assistant.Configured() {
		p.Summary = s.assistant.Summarize(ctx, fb.Day)
	}
	p.ShareText = ShareText(p)

	s.logger.Info().
		Str("city", p.City).
		Str("used_date", p.UsedDate).
		Bool("substituted", p.Substituted).
		Int("score", p.Result.Score).
		Msg("plan computed")
	return p, nil
}

// historicalInput falls back to the forecast temperature and zero rainfall
// when climatology is missing. The second result reports the fallback.
func historicalInput(h *models.HistoricalAverage, day models.DailyAggregate) (forecast.HistoricalInput, bool) {
	in := forecast.HistoricalInput{AvgTemp: day.Temp}
	fallback := true
	if h != nil && h.Temperature != nil {
		in.AvgTemp = *h.Temperature
		fallback = false
	}
	if h != nil && h.Precipitation != nil {
		in.AvgRainfallMM = *h.Precipitation
	}
	return in, fallback
}

// ShareText is the one-line copyable forecast.
func ShareText(p *Plan) string {
	d := p.Day
	text := fmt.Sprintf("Today's Forecast - %s %s: %s %s | Temp %.1f°C, Humidity %.0f%%, Wind %.1f m/s, Rain %.1f mm. Suitability %d/100 (%s). %s",
		p.City, p.RequestedDate, d.Glyph, d.Condition, d.Temp, d.Humidity, d.WindSpeed, d.Rain,
		p.Result.Score, p.Suggestion, p.Summary)
	return strings.TrimSpace(text)
}

// locate resolves city through Nominatim, then the forecast's own
// coordinates.
func (s *Service) locate(ctx context.Context, city string, fc *models.CityForecast) models.Location {
	if s.geo != nil {
		loc, err := s.geo.Search(ctx, city)
		if err == nil {
			return *loc
		}
		s.logger.Debug().Err(err).Str("city", city).Msg("nominatim lookup failed, using forecast coordinates")
	}
	return models.Location{Name: fc.City, Country: fc.Country, Latitude: fc.Latitude, Longitude: fc.Longitude}
}

// resolve finds a city's coordinates without a forecast in hand.
func (s *Service) resolve(ctx context.Context, city string) (models.Location, error) {
	if s.geo != nil {
		loc, err := s.geo.Search(ctx, city)
		if err == nil {
			return *loc, nil
		}
		s.logger.Debug().Err(err).Str("city", city).Msg("nominatim lookup failed, trying openweather")
	}
	loc, err := s.weather.Geocode(ctx, city)
	if err != nil {
		return models.Location{}, fmt.Errorf("geocoding %s: %w", city, err)
	}
	return *loc, nil
}

func (s *Service) historical(ctx context.Context, city string, loc models.Location, year, month int) (*models.HistoricalAverage, error) {
	if s.climate == nil {
		return nil, errNoClimatology
	}
	avg, err := s.climate.MonthlyAverages(ctx, loc.Latitude, loc.Longitude, year, month)
	if err != nil {
		return nil, err
	}
	return &models.HistoricalAverage{
		City:          city,
		Latitude:      loc.Latitude,
		Longitude:     loc.Longitude,
		Year:          avg.Year,
		Month:         avg.Month,
		Precipitation: avg.Precipitation,
		Temperature:   avg.Temperature,
	}, nil
}

// historicalFor fetches the monthly averages for the month containing date.
func (s *Service) historicalFor(ctx context.Context, city string, loc models.Location, date string) (*models.HistoricalAverage, error) {
	day, err := time.Parse(forecast.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: forecast date %q", ErrInvalidDate, date)
	}
	return s.historical(ctx, city, loc, day.Year(), int(day.Month()))
}

// Historical returns NASA POWER monthly averages for city.
func (s *Service) Historical(ctx context.Context, city string, year, month int) (*models.HistoricalAverage, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	loc, err := s.resolve(ctx, city)
	if err != nil {
		return nil, err
	}
	return s.historical(ctx, titleCase(city), loc, year, month)
}

// Pollution geocodes city through OpenWeatherMap and returns current air
// quality there.
func (s *Service) Pollution(ctx context.Context, city string) (*models.AirQuality, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}
	loc, err := s.weather.Geocode(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("geocoding %s: %w", city, err)
	}
	aq, err := s.weather.AirPollution(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, fmt.Errorf("air pollution for %s: %w", city, err)
	}
	aq.Location = *loc
	return aq, nil
}

func displayName(query string, fc *models.CityForecast) string {
	if fc != nil && fc.City != "" {
		return fc.City
	}
	return titleCase(query)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToTitle(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
