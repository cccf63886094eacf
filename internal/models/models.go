package models

import "time"

// Phase is the day/night marker carried by an OpenWeatherMap icon code.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// PhaseFromIcon reads the trailing d/n of an icon code such as "10n".
// An empty or unrecognised icon counts as day.
func PhaseFromIcon(icon string) Phase {
	if len(icon) > 0 && icon[len(icon)-1] == 'n' {
		return PhaseNight
	}
	return PhaseDay
}

type ForecastPoint struct {
	Time        time.Time
	Date        string // YYYY-MM-DD as reported by the provider
	Temp        float64
	Humidity    float64
	WindSpeed   float64
	Rain        float64 // mm over the 3h step, 0 when absent
	Condition   string  // "Clear", "Rain", ...
	Description string
	Phase       Phase
}

type CityForecast struct {
	City           string
	Country        string
	Latitude       float64
	Longitude      float64
	TimezoneOffset int // seconds east of UTC
	Points         []ForecastPoint
}

type DailyAggregate struct {
	Date        string  `json:"date"`
	Temp        float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Rain        float64 `json:"rain"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Phase       Phase   `json:"phase"`
	Glyph       string  `json:"glyph"`
	Points      int     `json:"points"`
}

type HistoricalAverage struct {
	City          string   `json:"city"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	Precipitation *float64 `json:"avg_rainfall_mm"`   // mm/day
	Temperature   *float64 `json:"avg_temperature_c"` // degC
}

type DailyClimate struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	Humidity    float64 `json:"humidity"`
}

type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type AirQuality struct {
	Location   Location            `json:"location"`
	AQI        int                 `json:"aqi"`
	Components PollutantComponents `json:"components"`
	FetchedAt  time.Time           `json:"fetched_at"`
}

type PollutantComponents struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
}

// AQILabel names the OpenWeatherMap 1-5 air quality index.
func AQILabel(aqi int) string {
	switch aqi {
	case 1:
		return "Good"
	case 2:
		return "Fair"
	case 3:
		return "Moderate"
	case 4:
		return "Poor"
	case 5:
		return "Very Poor"
	default:
		return "Unknown"
	}
}

type Verdict string

const (
	VerdictFavorable   Verdict = "favorable"
	VerdictCautionary  Verdict = "cautionary"
	VerdictUnfavorable Verdict = "unfavorable"
)

type SuitabilityResult struct {
	Score   int     `json:"score"`
	Verdict Verdict `json:"verdict"`
	Message string  `json:"message"`
}
