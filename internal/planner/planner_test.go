package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/climate"
	"github.com/astrocast/astrocast/internal/forecast"
	"github.com/astrocast/astrocast/internal/models"
	"github.com/astrocast/astrocast/internal/nasapower"
)

// Friday 2025-06-06 10:00 UTC.
var testNow = time.Date(2025, 6, 6, 10, 0, 0, 0, time.UTC)

func dayPoints(date string, temp, rain float64, cond string) []models.ForecastPoint {
	var out []models.ForecastPoint
	for _, hour := range []int{9, 15} {
		ts, _ := time.Parse("2006-01-02 15", fmt.Sprintf("%s %02d", date, hour))
		out = append(out, models.ForecastPoint{
			Time: ts, Date: date, Temp: temp, Humidity: 50, WindSpeed: 3,
			Rain: rain / 2, Condition: cond, Description: strings.ToLower(cond), Phase: models.PhaseDay,
		})
	}
	return out
}

func cityForecast(name string, temp, rain float64, cond string, dates ...string) *models.CityForecast {
	fc := &models.CityForecast{City: name, Country: "NO", Latitude: 59.9, Longitude: 10.7, TimezoneOffset: 7200}
	for _, d := range dates {
		fc.Points = append(fc.Points, dayPoints(d, temp, rain, cond)...)
	}
	return fc
}

var week = []string{"2025-06-06", "2025-06-07", "2025-06-08", "2025-06-09", "2025-06-10"}

type fakeWeather struct {
	forecasts map[string]*models.CityForecast
}

func (f *fakeWeather) Forecast(_ context.Context, city string) (*models.CityForecast, error) {
	fc, ok := f.forecasts[strings.ToLower(city)]
	if !ok {
		return nil, errors.New("city not found")
	}
	return fc, nil
}

func (f *fakeWeather) ForecastByCoords(_ context.Context, _, _ float64) (*models.CityForecast, error) {
	return f.forecasts["oslo"], nil
}

func (f *fakeWeather) Geocode(_ context.Context, city string) (*models.Location, error) {
	if _, ok := f.forecasts[strings.ToLower(city)]; !ok {
		return nil, errors.New("city not found")
	}
	return &models.Location{Name: city, Country: "NO", Latitude: 59.9, Longitude: 10.7}, nil
}

func (f *fakeWeather) AirPollution(_ context.Context, lat, lon float64) (*models.AirQuality, error) {
	return &models.AirQuality{AQI: 2, Components: models.PollutantComponents{PM25: 4.2}}, nil
}

type fakeClimate struct {
	mu      sync.Mutex
	monthly func(year int) (*nasapower.MonthlyAverage, error)
	calls   int
}

func (f *fakeClimate) MonthlyAverages(_ context.Context, _, _ float64, year, month int) (*nasapower.MonthlyAverage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	avg, err := f.monthly(year)
	if avg != nil {
		avg.Year, avg.Month = year, month
	}
	return avg, err
}

func (f *fakeClimate) Daily(_ context.Context, _, _ float64, day time.Time) (*nasapower.DailyPoint, error) {
	return &nasapower.DailyPoint{Date: day, Temperature: 17.5, WindSpeed: 2.1, Humidity: 64}, nil
}

func constantClimate(rain, temp float64) *fakeClimate {
	return &fakeClimate{monthly: func(int) (*nasapower.MonthlyAverage, error) {
		r, t := rain, temp
		return &nasapower.MonthlyAverage{Precipitation: &r, Temperature: &t, Days: 30}, nil
	}}
}

type fakeGeo struct{}

func (fakeGeo) Search(_ context.Context, q string) (*models.Location, error) {
	return &models.Location{Name: q, Latitude: 60, Longitude: 11}, nil
}

func (fakeGeo) Reverse(_ context.Context, _, _ float64) (string, error) {
	return "Oslo, Norway", nil
}

type stubProvider struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (p *stubProvider) Name() string { return "stub" }
func (p *stubProvider) Configured() bool { return true }
func (p *stubProvider) Models() ai.ModelState { return ai.ModelState{Candidates: []string{"stub-1"}} }
func (p *stubProvider) SetModelOverride(string) {}
func (p *stubProvider) RecentErrors() []string { return nil }
func (p *stubProvider) Generate(_ context.Context, prompt string, _ ai.Options) (ai.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return ai.Result{Text: p.reply, Model: "stub-1"}, nil
}

func (p *stubProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

func newTestService(cl *fakeClimate, provider *stubProvider) *Service {
	weather := &fakeWeather{forecasts: map[string]*models.CityForecast{
		"oslo":   cityForecast("Oslo", 25, 0, "Clear", week...),
		"bergen": cityForecast("Bergen", 14, 8, "Rain", week...),
		"tromso": cityForecast("Tromso", 22, 0, "Clouds", "2025-06-06", "2025-06-08"),
	}}
	var assistant *ai.Assistant
	if provider != nil {
		assistant = ai.NewAssistant(provider, nil, zerolog.Nop())
	}
	return New(Config{
		Weather:     weather,
		Climatology: cl,
		Geocoder:    fakeGeo{},
		Assistant:   assistant,
		Logger:      zerolog.Nop(),
		Now:         func() time.Time { return testNow },
	})
}

func TestPlanDefaultsToCityToday(t *testing.T) {
	svc := newTestService(constantClimate(1, 25), nil)

	p, err := svc.Plan(context.Background(), "oslo", "", PlanOptions{Summary: true})
	require.NoError(t, err)

	assert.Equal(t, "Oslo", p.City)
	assert.Equal(t, "2025-06-06", p.RequestedDate)
	assert.False(t, p.Substituted)
	assert.Equal(t, 100, p.Result.Score)
	assert.Equal(t, models.VerdictFavorable, p.Result.Verdict)
	assert.Equal(t, forecast.SuggestOutdoor, p.Suggestion)
	assert.False(t, p.HistoricalFallback)
	assert.Len(t, p.Days, 5)
	assert.Empty(t, p.Summary, "no assistant configured")
	assert.Equal(t, 60.0, p.Latitude, "nominatim coordinates preferred")
	assert.True(t, strings.HasPrefix(p.ShareText, "Today's Forecast - Oslo 2025-06-06: ☀️ Clear | Temp 25.0°C, Humidity 50%"), p.ShareText)
}

func TestPlanWetDayWithSummary(t *testing.T) {
	provider := &stubProvider{reply: "Bring umbrellas."}
	svc := newTestService(constantClimate(1, 25), provider)

	p, err := svc.Plan(context.Background(), "Bergen", "2025-06-07", PlanOptions{Summary: true})
	require.NoError(t, err)

	assert.Equal(t, 90.0, p.RainProbability)
	assert.Equal(t, 23, p.Result.Score)
	assert.Equal(t, models.VerdictUnfavorable, p.Result.Verdict)
	assert.Equal(t, forecast.SuggestIndoorBackup, p.Suggestion)
	assert.Equal(t, "Bring umbrellas.", p.Summary)
	assert.True(t, strings.HasSuffix(p.ShareText, "Suitability 23/100 ("+forecast.SuggestIndoorBackup+"). Bring umbrellas."), p.ShareText)
	assert.Contains(t, provider.lastPrompt(), "rain total ~8.0 mm expected")
}

func TestPlanFallsBackToNearestDate(t *testing.T) {
	svc := newTestService(constantClimate(1, 25), nil)

	p, err := svc.Plan(context.Background(), "Oslo", "2025-06-20", PlanOptions{})
	require.NoError(t, err)
	assert.True(t, p.Substituted)
	assert.Equal(t, "2025-06-20", p.RequestedDate)
	assert.Equal(t, "2025-06-10", p.UsedDate)
}

func TestPlanWithoutHistorical(t *testing.T) {
	cl := &fakeClimate{monthly: func(int) (*nasapower.MonthlyAverage, error) {
		return nil, errors.New("nasapower: unexpected status 503")
	}}
	svc := newTestService(cl, nil)

	p, err := svc.Plan(context.Background(), "Oslo", "2025-06-07", PlanOptions{})
	require.NoError(t, err)
	assert.True(t, p.HistoricalFallback)
	assert.Nil(t, p.Historical)
	assert.Contains(t, p.HistoricalError, "503")
	assert.Equal(t, 100, p.Result.Score, "forecast temperature stands in for climatology")
}

func TestPlanErrors(t *testing.T) {
	svc := newTestService(constantClimate(1, 25), nil)

	_, err := svc.Plan(context.Background(), "  ", "", PlanOptions{})
	assert.ErrorIs(t, err, ErrCityRequired)

	_, err = svc.Plan(context.Background(), "Oslo", "June 7", PlanOptions{})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.Plan(context.Background(), "Atlantis", "", PlanOptions{})
	assert.ErrorContains(t, err, "city not found")
}

func TestWeekendDate(t *testing.T) {
	tests := []struct {
		now  time.Time
		day  time.Weekday
		want string
	}{
		{testNow, time.Saturday, "2025-06-07"},
		{testNow, time.Sunday, "2025-06-08"},
		{testNow.AddDate(0, 0, 1), time.Saturday, "2025-06-07"},
		{testNow.AddDate(0, 0, 1), time.Sunday, "2025-06-08"},
		{testNow.AddDate(0, 0, 2), time.Saturday, "2025-06-14"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WeekendDate(tt.now, tt.day), "%s from %s", tt.day, tt.now.Weekday())
	}

	day, err := ParseWeekendDay("Sun")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)
	_, err = ParseWeekendDay("monday")
	assert.Error(t, err)
}

func TestCompareRanksAndReportsErrors(t *testing.T) {
	provider := &stubProvider{reply: "Oslo wins."}
	svc := newTestService(constantClimate(1, 25), provider)

	cmp, err := svc.Compare(context.Background(), []string{"Bergen", "Oslo", "Atlantis", " "}, time.Saturday)
	require.NoError(t, err)

	assert.Equal(t, "2025-06-07", cmp.TargetDate)
	require.Len(t, cmp.Rows, 2)
	assert.Equal(t, "Oslo", cmp.Rows[0].City)
	assert.Equal(t, "Bergen", cmp.Rows[1].City)
	assert.Equal(t, "🌧️ Rain", cmp.Rows[1].Condition)
	require.Len(t, cmp.Errors, 1)
	assert.True(t, strings.HasPrefix(cmp.Errors[0], "Atlantis: "))
	assert.Empty(t, cmp.Fallbacks)
	assert.Equal(t, "Oslo wins.", cmp.Summary)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "Compare these cities for a weekend outdoor parade")
	assert.Contains(t, prompt, "City,Score,RainProb(%)")
	assert.Contains(t, prompt, "User question: "+ai.CompareQuestion)

	best, ok := cmp.Best()
	require.True(t, ok)
	assert.Equal(t, 100, best.Score)
}

func TestCompareFallbackNotice(t *testing.T) {
	svc := newTestService(constantClimate(1, 22), nil)

	cmp, err := svc.Compare(context.Background(), []string{"Tromso"}, time.Saturday)
	require.NoError(t, err)
	require.Len(t, cmp.Rows, 1)
	assert.Equal(t, "2025-06-06", cmp.Rows[0].UsedDate, "equidistant dates resolve to the earlier one")
	assert.Equal(t, []string{"Tromso→2025-06-06"}, cmp.Fallbacks)
	assert.Empty(t, cmp.Summary)
}

func TestCompareRequiresCity(t *testing.T) {
	svc := newTestService(constantClimate(1, 22), nil)
	_, err := svc.Compare(context.Background(), []string{"", " "}, time.Sunday)
	assert.ErrorIs(t, err, ErrCityRequired)
}

func TestCompareCapsCities(t *testing.T) {
	cl := constantClimate(1, 22)
	svc := newTestService(cl, nil)
	cities := make([]string, MaxCompareCities+1)
	for i := range cities {
		cities[i] = fmt.Sprintf("City %d", i)
	}
	_, err := svc.Compare(context.Background(), cities, time.Saturday)
	assert.ErrorIs(t, err, ErrTooManyCities)
	assert.Zero(t, cl.calls)
}

func TestHistoricalForRejectsMalformedDate(t *testing.T) {
	cl := constantClimate(1, 22)
	svc := newTestService(cl, nil)

	_, err := svc.historicalFor(context.Background(), "Oslo", models.Location{}, "2025-6-7")
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Zero(t, cl.calls)

	h, err := svc.historicalFor(context.Background(), "Oslo", models.Location{}, "2025-06-07")
	require.NoError(t, err)
	assert.Equal(t, 2025, h.Year)
	assert.Equal(t, 6, h.Month)
}

func TestClimate(t *testing.T) {
	cl := &fakeClimate{monthly: func(year int) (*nasapower.MonthlyAverage, error) {
		switch {
		case year == 2025:
			return nil, nasapower.ErrNoData
		case year <= 2000:
			r, t := 2.0, 20.0
			return &nasapower.MonthlyAverage{Precipitation: &r, Temperature: &t}, nil
		default:
			r, t := 3.5, 22.0
			return &nasapower.MonthlyAverage{Precipitation: &r, Temperature: &t}, nil
		}
	}}
	provider := &stubProvider{reply: "Wetter and warmer."}
	svc := newTestService(cl, provider)

	res, err := svc.Climate(context.Background(), ClimateRequest{
		City: "oslo", Month: 7,
		Historical: climate.DefaultHistorical, Recent: climate.DefaultRecent,
		Commentary: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Oslo", res.City)
	assert.Equal(t, 27, cl.calls)
	assert.Len(t, res.Historical.Values, 16)
	assert.Len(t, res.Recent.Values, 10)
	assert.InDelta(t, 75, res.RainDeltaPct, 1e-9)
	assert.Equal(t, "High", res.Confidence)
	assert.Equal(t, "Wetter and warmer.", res.Commentary)
	assert.Contains(t, provider.lastPrompt(), "for Oslo for month July")
}

func TestClimateErrors(t *testing.T) {
	failing := &fakeClimate{monthly: func(int) (*nasapower.MonthlyAverage, error) {
		return nil, nasapower.ErrNoData
	}}
	svc := newTestService(failing, nil)

	_, err := svc.Climate(context.Background(), ClimateRequest{
		City: "Oslo", Month: 7, Historical: climate.DefaultHistorical, Recent: climate.DefaultRecent,
	})
	assert.ErrorIs(t, err, ErrInsufficientClimate)

	_, err = svc.Climate(context.Background(), ClimateRequest{
		City: "Oslo", Month: 7, Historical: climate.Period{Start: 2000, End: 2002}, Recent: climate.DefaultRecent,
	})
	var verr *climate.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Climate(context.Background(), ClimateRequest{City: "Oslo", Month: 13})
	assert.Error(t, err)
}

func TestHistorical(t *testing.T) {
	svc := newTestService(constantClimate(3.2, 18), nil)

	h, err := svc.Historical(context.Background(), "oslo", 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", h.City)
	assert.Equal(t, 2024, h.Year)
	require.NotNil(t, h.Precipitation)
	assert.Equal(t, 3.2, *h.Precipitation)

	_, err = svc.Historical(context.Background(), "oslo", 2024, 0)
	assert.Error(t, err)
}

func TestPollution(t *testing.T) {
	svc := newTestService(constantClimate(1, 20), nil)

	aq, err := svc.Pollution(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, 2, aq.AQI)
	assert.Equal(t, "Oslo", aq.Location.Name)
	assert.Equal(t, "Fair", models.AQILabel(aq.AQI))

	_, err = svc.Pollution(context.Background(), "Atlantis")
	assert.Error(t, err)
}

func TestPinInfo(t *testing.T) {
	svc := newTestService(constantClimate(1, 20), nil)

	pin, err := svc.PinInfo(context.Background(), 59.91, 10.75)
	require.NoError(t, err)
	assert.Equal(t, "Oslo, Norway", pin.Place)
	require.NotNil(t, pin.Today)
	assert.Equal(t, "2025-06-06", pin.Today.Date)
	require.NotNil(t, pin.Observed)
	assert.Equal(t, "2025-06-05", pin.Observed.Date)
	assert.Equal(t, GIBSMaxZoom, pin.MaxZoom)
	require.Len(t, pin.Layers, 3)
	assert.Equal(t,
		"https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/MODIS_Terra_CorrectedReflectance_TrueColor/default/20250606/GoogleMapsCompatible_Level9/{z}/{y}/{x}.jpg",
		pin.Layers[0].URL)

	_, err = svc.PinInfo(context.Background(), 95, 0)
	assert.Error(t, err)
}

func TestAskGroundsOnContext(t *testing.T) {
	provider := &stubProvider{reply: "No rain is expected tomorrow."}
	svc := newTestService(constantClimate(1.5, 16), provider)

	ans, err := svc.Ask(context.Background(), "Oslo", "", "Will it rain tomorrow?")
	require.NoError(t, err)
	assert.Equal(t, "No rain is expected tomorrow.", ans.Answer)
	assert.Contains(t, ans.Context, `"label":"today"`)
	assert.Contains(t, ans.Context, `"label":"day+2"`)
	assert.Contains(t, ans.Context, `"avg_temperature_c":16`)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "Use ONLY the numeric facts in the JSON context.")
	assert.Contains(t, prompt, "User question: Will it rain tomorrow?")

	_, err = svc.Ask(context.Background(), "Oslo", "", "  ")
	assert.ErrorIs(t, err, ErrQuestionRequired)
}

func TestAskWithoutAssistant(t *testing.T) {
	svc := newTestService(constantClimate(1, 20), nil)
	_, err := svc.Ask(context.Background(), "", "", "Hello?")
	assert.ErrorIs(t, err, ai.ErrNotConfigured)
}
