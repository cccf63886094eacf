package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/forecast"
	"github.com/astrocast/astrocast/internal/models"
)

// ContextDays is how many days after today the AI context covers.
const ContextDays = 2

var ErrQuestionRequired = errors.New("question is required")

type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context,omitempty"`
}

// Ask answers a weather question. With a city the answer is grounded on a
// JSON fact sheet of the coming days and the month's climatology; without
// one the model answers from general knowledge.
func (s *Service) Ask(ctx context.Context, city, date, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrQuestionRequired
	}
	if s.assistant == nil {
		return nil, ai.ErrNotConfigured
	}

	city = strings.TrimSpace(city)
	if city == "" {
		return &Answer{Question: question, Answer: s.assistant.Answer(ctx, "ask", question, "")}, nil
	}

	facts, err := s.weatherContext(ctx, city, date)
	if err != nil {
		return nil, err
	}
	return &Answer{
		Question: question,
		Answer:   s.assistant.Answer(ctx, "ask", ai.GroundedQuestion(question), facts),
		Context:  facts,
	}, nil
}

func (s *Service) weatherContext(ctx context.Context, city, date string) (string, error) {
	fc, err := s.weather.Forecast(ctx, city)
	if err != nil {
		return "", err
	}
	now := s.now()

	days := make(map[int]models.DailyAggregate, ContextDays+1)
	for offset := 0; offset <= ContextDays; offset++ {
		if day, ok := forecast.Aggregate(fc.Points, forecast.LocalDate(now, fc.TimezoneOffset, offset)); ok {
			days[offset] = day
		}
	}

	ref := now.UTC()
	if date != "" {
		if fb, ok := forecast.AggregateWithFallback(fc.Points, date); ok {
			date = fb.UsedDate
		}
		if t, err := time.Parse(forecast.DateLayout, date); err == nil {
			ref = t
		}
	}

	wc := ai.NewWeatherContext(displayName(city, fc), now, days, ContextDays)
	hist, err := s.historical(ctx, displayName(city, fc), s.locate(ctx, city, fc), ref.Year(), int(ref.Month()))
	if err != nil {
		s.logger.Debug().Err(err).Str("city", city).Msg("ai context without historical averages")
	}
	return wc.WithHistorical(hist).JSON()
}
