package openweather

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/astrocast/astrocast/internal/models"
)

type forecastResponse struct {
	List []forecastEntry `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Coord   struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Timezone int `json:"timezone"`
	} `json:"city"`
}

type forecastEntry struct {
	Dt    int64  `json:"dt"`
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

type geocodeResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type airPollutionResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components models.PollutantComponents `json:"components"`
	} `json:"list"`
}

const dtLayout = "2006-01-02 15:04:05"

func parseForecast(body []byte) (*models.CityForecast, error) {
	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	fc := &models.CityForecast{
		City:           resp.City.Name,
		Country:        resp.City.Country,
		Latitude:       resp.City.Coord.Lat,
		Longitude:      resp.City.Coord.Lon,
		TimezoneOffset: resp.City.Timezone,
		Points:         make([]models.ForecastPoint, 0, len(resp.List)),
	}
	for _, e := range resp.List {
		fc.Points = append(fc.Points, toPoint(e))
	}
	return fc, nil
}

func toPoint(e forecastEntry) models.ForecastPoint {
	p := models.ForecastPoint{
		Temp:      e.Main.Temp,
		Humidity:  e.Main.Humidity,
		WindSpeed: e.Wind.Speed,
		Condition: "Clear",
		Phase:     models.PhaseDay,
	}

	if t, err := time.Parse(dtLayout, e.DtTxt); err == nil {
		p.Time = t
	} else {
		p.Time = time.Unix(e.Dt, 0).UTC()
	}
	if date, _, ok := strings.Cut(e.DtTxt, " "); ok {
		p.Date = date
	} else {
		p.Date = p.Time.Format("2006-01-02")
	}

	if e.Rain != nil {
		p.Rain = e.Rain.ThreeHour
	}

	if len(e.Weather) > 0 {
		w := e.Weather[0]
		if w.Main != "" {
			p.Condition = w.Main
		}
		p.Description = w.Description
		if p.Description == "" {
			p.Description = p.Condition
		}
		p.Phase = models.PhaseFromIcon(w.Icon)
	} else {
		p.Description = p.Condition
	}
	return p
}
