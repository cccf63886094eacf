package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/astrocast/astrocast/internal/models"
)

// DateLayout is the calendar date format used by forecast points.
const DateLayout = "2006-01-02"

// Aggregate summarises the points falling on date. It returns false when no
// point carries that date.
func Aggregate(points []models.ForecastPoint, date string) (models.DailyAggregate, bool) {
	var (
		sumTemp, sumHumidity, sumWind, sumRain float64
		counts                                 = make(map[string]int)
		n                                      int
	)
	for _, p := range points {
		if p.Date != date {
			continue
		}
		n++
		sumTemp += p.Temp
		sumHumidity += p.Humidity
		sumWind += p.WindSpeed
		sumRain += p.Rain
		counts[p.Condition]++
	}
	if n == 0 {
		return models.DailyAggregate{}, false
	}

	dominant := dominantCondition(counts)

	day := models.DailyAggregate{
		Date:        date,
		Temp:        sumTemp / float64(n),
		Humidity:    sumHumidity / float64(n),
		WindSpeed:   sumWind / float64(n),
		Rain:        sumRain,
		Condition:   dominant,
		Description: dominant,
		Phase:       models.PhaseDay,
		Points:      n,
	}
	for _, p := range points {
		if p.Date == date && p.Condition == dominant {
			if p.Description != "" {
				day.Description = p.Description
			}
			day.Phase = p.Phase
			break
		}
	}
	day.Glyph = Glyph(day.Condition, day.Phase)
	return day, true
}

// dominantCondition returns the most frequent label, breaking ties by the
// lexicographically smallest label.
func dominantCondition(counts map[string]int) string {
	best, bestCount := "", -1
	for label, c := range counts {
		if c > bestCount || (c == bestCount && label < best) {
			best, bestCount = label, c
		}
	}
	return best
}

// Dates returns the distinct dates in points, sorted ascending.
func Dates(points []models.ForecastPoint) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, p := range points {
		if !seen[p.Date] {
			seen[p.Date] = true
			dates = append(dates, p.Date)
		}
	}
	sort.Strings(dates)
	return dates
}

// NearestDate returns target if any point carries it, otherwise the available
// date closest to it. Equidistant candidates resolve to the earlier date.
// It returns false for empty input or an unparseable target.
func NearestDate(points []models.ForecastPoint, target string) (string, bool) {
	dates := Dates(points)
	if len(dates) == 0 {
		return "", false
	}
	for _, d := range dates {
		if d == target {
			return d, true
		}
	}

	tgt, err := time.Parse(DateLayout, target)
	if err != nil {
		return "", false
	}

	// Distances are whole days from Unix seconds; time.Duration saturates
	// beyond roughly 292 years.
	best := ""
	bestDelta := int64(math.MaxInt64)
	for _, d := range dates {
		cur, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		delta := (cur.Unix() - tgt.Unix()) / 86400
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			best, bestDelta = d, delta
		}
	}
	return best, best != ""
}

// FallbackResult is an aggregate together with the date it was built for.
type FallbackResult struct {
	Day           models.DailyAggregate
	RequestedDate string
	UsedDate      string
	Substituted   bool
}

// AggregateWithFallback aggregates target, falling back to the nearest
// available date. It returns false only when no date could be aggregated.
func AggregateWithFallback(points []models.ForecastPoint, target string) (FallbackResult, bool) {
	if day, ok := Aggregate(points, target); ok {
		return FallbackResult{Day: day, RequestedDate: target, UsedDate: target}, true
	}

	nearest, ok := NearestDate(points, target)
	if !ok || nearest == target {
		return FallbackResult{RequestedDate: target, UsedDate: target}, false
	}

	day, ok := Aggregate(points, nearest)
	if !ok {
		return FallbackResult{RequestedDate: target, UsedDate: target}, false
	}
	return FallbackResult{Day: day, RequestedDate: target, UsedDate: nearest, Substituted: true}, true
}

// DailySummaries aggregates each available date in ascending order, up to
// limit days. A limit of zero or less means no limit.
func DailySummaries(points []models.ForecastPoint, limit int) []models.DailyAggregate {
	var days []models.DailyAggregate
	for _, d := range Dates(points) {
		if limit > 0 && len(days) >= limit {
			break
		}
		if day, ok := Aggregate(points, d); ok {
			days = append(days, day)
		}
	}
	return days
}

// LocalDate returns the calendar date dayOffset days after now in a zone
// utcOffset seconds east of UTC.
func LocalDate(now time.Time, utcOffset, dayOffset int) string {
	zone := time.FixedZone("city", utcOffset)
	return now.In(zone).AddDate(0, 0, dayOffset).Format(DateLayout)
}
