package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/climate"
)

// ErrInsufficientClimate means one of the periods had no usable years.
var ErrInsufficientClimate = errors.New("climate data not sufficient for comparison")

type ClimateRequest struct {
	City       string
	Month      int
	Historical climate.Period
	Recent     climate.Period
	// Commentary requests AI commentary when the assistant is configured.
	Commentary bool
}

// ClimateResult is an Insight tagged with the place it describes.
type ClimateResult struct {
	City string `json:"city"`
	climate.Insight
}

// Climate compares a month's rainfall and temperature between two periods
// of years.
func (s *Service) Climate(ctx context.Context, req ClimateRequest) (*ClimateResult, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return nil, ErrCityRequired
	}
	if req.Month < 1 || req.Month > 12 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, req.Month)
	}
	if err := climate.Validate(req.Historical, req.Recent); err != nil {
		return nil, err
	}
	if s.climate == nil {
		return nil, errNoClimatology
	}

	loc, err := s.resolve(ctx, city)
	if err != nil {
		return nil, err
	}

	var hist, recent []climate.YearValue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hist = s.yearValues(gctx, loc.Latitude, loc.Longitude, req.Month, req.Historical)
		return nil
	})
	g.Go(func() error {
		recent = s.yearValues(gctx, loc.Latitude, loc.Longitude, req.Month, req.Recent)
		return nil
	})
	_ = g.Wait()

	hs, okH := climate.Summarize(req.Historical, hist)
	rs, okR := climate.Summarize(req.Recent, recent)
	if !okH || !okR {
		return nil, fmt.Errorf("%s month %d: %w", city, req.Month, ErrInsufficientClimate)
	}

	res := &ClimateResult{City: titleCase(city), Insight: climate.Compare(req.Month, hs, rs)}
	if req.Commentary && s.assistant != nil && s.assistant.Configured() {
		prompt := ai.ClimateContext(ai.ClimateTrend{
			City:          res.City,
			MonthName:     time.Month(req.Month).String(),
			Confidence:    res.Confidence,
			RainDeltaAbs:  res.RainDeltaAbs,
			RainDeltaPct:  res.RainDeltaPct,
			TempDeltaAbs:  res.TempDeltaAbs,
			TempDeltaPct:  res.TempDeltaPct,
			RecentPeriod:  req.Recent.Label(),
			HistPeriod:    req.Historical.Label(),
			RecentTailCSV: res.TailCSV(10),
		})
		res.Commentary = s.assistant.Answer(ctx, "climate", ai.ClimateQuestion, prompt)
	}
	return res, nil
}

// yearValues fetches the month for every year in p. Years that fail or lack
// either value are skipped.
func (s *Service) yearValues(ctx context.Context, lat, lon float64, month int, p climate.Period) []climate.YearValue {
	var (
		mu  sync.Mutex
		out []climate.YearValue
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for year := p.Start; year <= p.End; year++ {
		g.Go(func() error {
			avg, err := s.climate.MonthlyAverages(gctx, lat, lon, year, month)
			if err != nil {
				s.logger.Debug().Err(err).Int("year", year).Int("month", month).Msg("skipping climate year")
				return nil
			}
			if avg.Precipitation == nil || avg.Temperature == nil {
				return nil
			}
			mu.Lock()
			out = append(out, climate.YearValue{Year: year, Rainfall: *avg.Precipitation, Temperature: *avg.Temperature})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
