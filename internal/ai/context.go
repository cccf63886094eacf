package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/astrocast/astrocast/internal/models"
)

// WeatherContext is the JSON fact sheet given to the model for grounded
// answers.
type WeatherContext struct {
	City         string             `json:"city"`
	GeneratedUTC string             `json:"generated_utc"`
	Days         []ContextDay       `json:"days"`
	Historical   *ContextHistorical `json:"historical"`
}

type ContextDay struct {
	Label          string  `json:"label"`
	Date           string  `json:"date"`
	AvgTempC       float64 `json:"avg_temp_c"`
	AvgHumidityPct float64 `json:"avg_humidity_pct"`
	AvgWindMS      float64 `json:"avg_wind_ms"`
	TotalRainMM    float64 `json:"total_rain_mm"`
}

type ContextHistorical struct {
	Month           int      `json:"month"`
	AvgRainfallMM   *float64 `json:"avg_rainfall_mm"`
	AvgTemperatureC *float64 `json:"avg_temperature_c"`
}

// NewWeatherContext labels days as today, day+1, day+2... in order. Days
// may be sparse; pass the offset of each alongside it.
func NewWeatherContext(city string, now time.Time, days map[int]models.DailyAggregate, maxOffset int) WeatherContext {
	wc := WeatherContext{
		City:         city,
		GeneratedUTC: now.UTC().Format("2006-01-02T15:04:05") + "Z",
		Days:         []ContextDay{},
	}
	for offset := 0; offset <= maxOffset; offset++ {
		day, ok := days[offset]
		if !ok {
			continue
		}
		label := "today"
		if offset > 0 {
			label = fmt.Sprintf("day+%d", offset)
		}
		wc.Days = append(wc.Days, ContextDay{
			Label:          label,
			Date:           day.Date,
			AvgTempC:       round(day.Temp, 2),
			AvgHumidityPct: round(day.Humidity, 1),
			AvgWindMS:      round(day.WindSpeed, 2),
			TotalRainMM:    round(day.Rain, 2),
		})
	}
	return wc
}

// WithHistorical attaches monthly averages; nil leaves historical as null.
func (wc WeatherContext) WithHistorical(h *models.HistoricalAverage) WeatherContext {
	if h != nil {
		wc.Historical = &ContextHistorical{
			Month:           h.Month,
			AvgRainfallMM:   h.Precipitation,
			AvgTemperatureC: h.Temperature,
		}
	}
	return wc
}

func (wc WeatherContext) JSON() (string, error) {
	b, err := json.Marshal(wc)
	if err != nil {
		return "", fmt.Errorf("encoding weather context: %w", err)
	}
	return string(b), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
