package planner

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/forecast"
)

// WeekendDate returns the next occurrence of day on or after now's date.
func WeekendDate(now time.Time, day time.Weekday) string {
	ahead := (int(day) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, ahead).Format(forecast.DateLayout)
}

// ParseWeekendDay accepts "saturday"/"sunday" (or "sat"/"sun").
func ParseWeekendDay(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "saturday", "sat":
		return time.Saturday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	}
	return 0, fmt.Errorf("weekend day must be saturday or sunday, got %q", s)
}

// CompareRow is one city's line in a weekend comparison.
type CompareRow struct {
	City            string  `json:"city"`
	Score           int     `json:"score"`
	RainProbability float64 `json:"rain_probability"`
	Temp            float64 `json:"temp"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"wind_speed"`
	Rain            float64 `json:"rain"`
	Condition       string  `json:"condition"`
	Suggestion      string  `json:"suggestion"`
	UsedDate        string  `json:"used_date"`
	Substituted     bool    `json:"substituted"`
}

type Comparison struct {
	Day        string       `json:"day"`
	TargetDate string       `json:"target_date"`
	Rows       []CompareRow `json:"rows"`
	Errors     []string     `json:"errors,omitempty"`
	Fallbacks  []string     `json:"fallbacks,omitempty"`
	Summary    string       `json:"summary,omitempty"`
}

// Best returns the top scoring row.
func (c *Comparison) Best() (CompareRow, bool) {
	if len(c.Rows) == 0 {
		return CompareRow{}, false
	}
	return c.Rows[0], true
}

// MaxCompareCities bounds one comparison's fan-out.
const MaxCompareCities = 10

// Compare scores each city for the coming Saturday or Sunday. Cities that
// fail are reported in Errors and the rest are ranked by score.
func (s *Service) Compare(ctx context.Context, cities []string, day time.Weekday) (*Comparison, error) {
	var names []string
	for _, c := range cities {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	if len(names) == 0 {
		return nil, ErrCityRequired
	}
	if len(names) > MaxCompareCities {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyCities, len(names))
	}

	cmp := &Comparison{Day: day.String(), TargetDate: WeekendDate(s.now(), day)}

	rows := make([]*CompareRow, len(names))
	errs := make([]error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			p, err := s.Plan(gctx, name, cmp.TargetDate, PlanOptions{})
			if err != nil {
				errs[i] = err
				return nil
			}
			rows[i] = rowFromPlan(p)
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range names {
		if errs[i] != nil {
			cmp.Errors = append(cmp.Errors, fmt.Sprintf("%s: %v", name, errs[i]))
			continue
		}
		cmp.Rows = append(cmp.Rows, *rows[i])
	}
	sort.SliceStable(cmp.Rows, func(i, j int) bool { return cmp.Rows[i].Score > cmp.Rows[j].Score })

	for _, r := range cmp.Rows {
		if r.Substituted {
			cmp.Fallbacks = append(cmp.Fallbacks, r.City+"→"+r.UsedDate)
		}
	}

	if len(cmp.Rows) > 0 && s.assistant != nil && s.assistant.Configured() {
		cmp.Summary = s.assistant.Answer(ctx, "compare", ai.CompareQuestion, ai.CompareContext(cmp.CSV()))
	}
	return cmp, nil
}

func rowFromPlan(p *Plan) *CompareRow {
	return &CompareRow{
		City:            p.City,
		Score:           p.Result.Score,
		RainProbability: p.RainProbability,
		Temp:            p.Day.Temp,
		Humidity:        p.Day.Humidity,
		WindSpeed:       p.Day.WindSpeed,
		Rain:            p.Day.Rain,
		Condition:       strings.TrimSpace(p.Day.Glyph + " " + p.Day.Condition),
		Suggestion:      p.Suggestion,
		UsedDate:        p.UsedDate,
		Substituted:     p.Substituted,
	}
}

// CSV renders the ranked rows for the comparison prompt.
func (c *Comparison) CSV() string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"City", "Score", "RainProb(%)", "Temp(°C)", "Humidity(%)", "Wind(m/s)", "Rain(mm)", "Cond", "Suggestion"})
	for _, r := range c.Rows {
		_ = w.Write([]string{
			r.City,
			strconv.Itoa(r.Score),
			strconv.FormatFloat(r.RainProbability, 'f', 0, 64),
			strconv.FormatFloat(r.Temp, 'f', 1, 64),
			strconv.FormatFloat(r.Humidity, 'f', 0, 64),
			strconv.FormatFloat(r.WindSpeed, 'f', 1, 64),
			strconv.FormatFloat(r.Rain, 'f', 1, 64),
			r.Condition,
			r.Suggestion,
		})
	}
	w.Flush()
	return buf.String()
}
