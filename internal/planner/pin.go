package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/astrocast/astrocast/internal/forecast"
	"github.com/astrocast/astrocast/internal/models"
)

const (
	gibsTileTemplate = "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/%s/default/%s/GoogleMapsCompatible_Level9/{z}/{y}/{x}.%s"
	GIBSMaxZoom      = 9
)

// Layer is a NASA GIBS imagery overlay.
type Layer struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Format string `json:"format"`
}

var Layers = []Layer{
	{ID: "MODIS_Terra_CorrectedReflectance_TrueColor", Title: "True color (MODIS Terra)", Format: "jpg"},
	{ID: "MODIS_Terra_Cloud_Fraction_Day", Title: "Cloud fraction (day)", Format: "png"},
	{ID: "MERRA2_Surface_Temperature", Title: "Surface temperature (MERRA-2)", Format: "png"},
}

// TileURL is the XYZ template for day's imagery.
func (l Layer) TileURL(day time.Time) string {
	return fmt.Sprintf(gibsTileTemplate, l.ID, day.Format("20060102"), l.Format)
}

// LayerTile pairs a layer with its resolved template.
type LayerTile struct {
	Layer
	URL string `json:"url"`
}

// Pin is the map panel for a clicked point.
type Pin struct {
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	Place     string                 `json:"place,omitempty"`
	Today     *models.DailyAggregate `json:"today,omitempty"`
	UsedDate  string                 `json:"used_date,omitempty"`
	Observed  *models.DailyClimate   `json:"observed,omitempty"`
	Layers    []LayerTile            `json:"layers"`
	MaxZoom   int                    `json:"max_zoom"`
}

// PinInfo reverse geocodes a point and aggregates today's forecast there.
// Reverse geocoding failures leave Place empty.
func (s *Service) PinInfo(ctx context.Context, lat, lon float64) (*Pin, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: %f,%f", ErrInvalidPoint, lat, lon)
	}

	now := s.now()
	pin := &Pin{Latitude: lat, Longitude: lon, MaxZoom: GIBSMaxZoom}
	for _, l := range Layers {
		pin.Layers = append(pin.Layers, LayerTile{Layer: l, URL: l.TileURL(now.UTC())})
	}

	if s.geo != nil {
		place, err := s.geo.Reverse(ctx, lat, lon)
		if err != nil {
			s.logger.Debug().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse geocode failed")
		}
		pin.Place = strings.TrimSpace(place)
	}

	fc, err := s.weather.ForecastByCoords(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("forecast at %f,%f: %w", lat, lon, err)
	}
	if pin.Place == "" {
		pin.Place = fc.City
	}

	today := forecast.LocalDate(now, fc.TimezoneOffset, 0)
	if fb, ok := forecast.AggregateWithFallback(fc.Points, today); ok {
		pin.Today = &fb.Day
		pin.UsedDate = fb.UsedDate
	}

	// POWER daily values trail real time, so the latest complete day is
	// yesterday at best.
	if s.climate != nil {
		day := now.UTC().AddDate(0, 0, -1)
		if obs, err := s.climate.Daily(ctx, lat, lon, day); err == nil {
			pin.Observed = &models.DailyClimate{
				Date:        obs.Date.Format(forecast.DateLayout),
				Temperature: obs.Temperature,
				WindSpeed:   obs.WindSpeed,
				Humidity:    obs.Humidity,
			}
		} else {
			s.logger.Debug().Err(err).Msg("no observed climate for pin")
		}
	}
	return pin, nil
}
