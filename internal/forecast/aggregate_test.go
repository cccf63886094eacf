package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/astrocast/astrocast/internal/models"
)

func point(date string, temp, humidity, wind, rain float64, cond, desc string, phase models.Phase) models.ForecastPoint {
	return models.ForecastPoint{
		Date:        date,
		Temp:        temp,
		Humidity:    humidity,
		WindSpeed:   wind,
		Rain:        rain,
		Condition:   cond,
		Description: desc,
		Phase:       phase,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregate(t *testing.T) {
	points := []models.ForecastPoint{
		point("2025-06-01", 20, 60, 3, 0, "Clouds", "few clouds", models.PhaseNight),
		point("2025-06-01", 24, 50, 5, 1.5, "Rain", "light rain", models.PhaseDay),
		point("2025-06-01", 28, 40, 7, 0, "Clouds", "broken clouds", models.PhaseDay),
		point("2025-06-02", 10, 90, 1, 4, "Rain", "moderate rain", models.PhaseDay),
	}

	day, ok := Aggregate(points, "2025-06-01")
	if !ok {
		t.Fatal("Aggregate returned no data")
	}
	if !approx(day.Temp, 24) {
		t.Errorf("Temp = %v, want 24", day.Temp)
	}
	if !approx(day.Humidity, 50) {
		t.Errorf("Humidity = %v, want 50", day.Humidity)
	}
	if !approx(day.WindSpeed, 5) {
		t.Errorf("WindSpeed = %v, want 5", day.WindSpeed)
	}
	if !approx(day.Rain, 1.5) {
		t.Errorf("Rain = %v, want 1.5", day.Rain)
	}
	if day.Condition != "Clouds" {
		t.Errorf("Condition = %q, want Clouds", day.Condition)
	}
	if day.Description != "few clouds" || day.Phase != models.PhaseNight {
		t.Errorf("representative = (%q, %q), want first Clouds point", day.Description, day.Phase)
	}
	if day.Glyph != "☁️" {
		t.Errorf("Glyph = %q", day.Glyph)
	}
	if day.Points != 3 {
		t.Errorf("Points = %d, want 3", day.Points)
	}
}

func TestAggregateNoData(t *testing.T) {
	if _, ok := Aggregate(nil, "2025-06-01"); ok {
		t.Error("empty input should report no data")
	}
	points := []models.ForecastPoint{point("2025-06-02", 10, 50, 1, 0, "Clear", "", models.PhaseDay)}
	if _, ok := Aggregate(points, "2025-06-01"); ok {
		t.Error("missing date should report no data")
	}
}

func TestAggregateTieBreak(t *testing.T) {
	points := []models.ForecastPoint{
		point("2025-06-01", 20, 50, 1, 0, "Rain", "light rain", models.PhaseDay),
		point("2025-06-01", 20, 50, 1, 0, "Clear", "clear sky", models.PhaseNight),
	}
	day, _ := Aggregate(points, "2025-06-01")
	if day.Condition != "Clear" {
		t.Errorf("Condition = %q, want Clear (lexicographically smallest)", day.Condition)
	}
	if day.Glyph != "🌕" {
		t.Errorf("Glyph = %q, want night clear", day.Glyph)
	}
}

func TestAggregateTieBetweenPairs(t *testing.T) {
	points := []models.ForecastPoint{
		point("2025-06-01", 20, 50, 1, 1, "Rain", "light rain", models.PhaseDay),
		point("2025-06-01", 20, 50, 1, 0, "Clouds", "overcast", models.PhaseDay),
		point("2025-06-01", 20, 50, 1, 2, "Rain", "moderate rain", models.PhaseDay),
		point("2025-06-01", 20, 50, 1, 0, "Clouds", "few clouds", models.PhaseDay),
	}
	day, _ := Aggregate(points, "2025-06-01")
	if day.Condition != "Clouds" {
		t.Errorf("Condition = %q, want Clouds", day.Condition)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	points := []models.ForecastPoint{
		point("2025-06-01", 21.3, 55, 2.2, 0.4, "Drizzle", "light drizzle", models.PhaseDay),
		point("2025-06-01", 19.7, 65, 3.1, 0, "Clouds", "overcast", models.PhaseDay),
	}
	a, _ := Aggregate(points, "2025-06-01")
	b, _ := Aggregate(points, "2025-06-01")
	if a != b {
		t.Errorf("Aggregate not idempotent: %+v vs %+v", a, b)
	}
}

func TestNearestDate(t *testing.T) {
	points := []models.ForecastPoint{
		point("2025-06-03", 0, 0, 0, 0, "Clear", "", models.PhaseDay),
		point("2025-06-05", 0, 0, 0, 0, "Clear", "", models.PhaseDay),
		point("2025-06-07", 0, 0, 0, 0, "Clear", "", models.PhaseDay),
	}

	tests := []struct {
		name   string
		target string
		want   string
		ok     bool
	}{
		{"present", "2025-06-05", "2025-06-05", true},
		{"before window", "2025-05-20", "2025-06-03", true},
		{"after window", "2025-07-01", "2025-06-07", true},
		{"tie resolves earlier", "2025-06-04", "2025-06-03", true},
		{"far past", "1700-01-01", "2025-06-03", true},
		{"far future", "2400-01-01", "2025-06-07", true},
		{"unparseable", "June 4th", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NearestDate(points, tt.target)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NearestDate(%q) = (%q, %v), want (%q, %v)", tt.target, got, ok, tt.want, tt.ok)
			}
		})
	}

	if _, ok := NearestDate(nil, "2025-06-04"); ok {
		t.Error("empty input should report no data")
	}
}

func TestAggregateWithFallback(t *testing.T) {
	points := []models.ForecastPoint{
		point("2025-06-03", 18, 70, 2, 0, "Clear", "clear sky", models.PhaseDay),
		point("2025-06-04", 22, 60, 3, 0, "Clouds", "few clouds", models.PhaseDay),
	}

	res, ok := AggregateWithFallback(points, "2025-06-04")
	if !ok || res.Substituted || res.UsedDate != "2025-06-04" {
		t.Errorf("exact: %+v ok=%v", res, ok)
	}

	res, ok = AggregateWithFallback(points, "2025-06-10")
	if !ok || !res.Substituted || res.UsedDate != "2025-06-04" || res.RequestedDate != "2025-06-10" {
		t.Errorf("fallback: %+v ok=%v", res, ok)
	}
	if res.Day.Condition != "Clouds" {
		t.Errorf("fallback day condition = %q", res.Day.Condition)
	}

	sparse := []models.ForecastPoint{
		point("2025-01-01", 10, 70, 2, 0, "Clear", "clear sky", models.PhaseDay),
		point("2025-01-10", 12, 70, 2, 0, "Rain", "light rain", models.PhaseDay),
	}
	res, ok = AggregateWithFallback(sparse, "2025-01-04")
	if !ok || res.UsedDate != "2025-01-01" || !res.Substituted {
		t.Errorf("nearest earlier: %+v ok=%v", res, ok)
	}

	res, ok = AggregateWithFallback(points, "1700-01-01")
	if !ok || res.UsedDate != "2025-06-03" {
		t.Errorf("far past: %+v ok=%v", res, ok)
	}

	if _, ok := AggregateWithFallback(nil, "2025-06-10"); ok {
		t.Error("no points should fail")
	}
	if _, ok := AggregateWithFallback(points, "bad-date"); ok {
		t.Error("unparseable target should fail")
	}
}

func TestDailySummaries(t *testing.T) {
	var points []models.ForecastPoint
	for _, d := range []string{"2025-06-03", "2025-06-01", "2025-06-02", "2025-06-04"} {
		points = append(points, point(d, 20, 50, 1, 0, "Clear", "", models.PhaseDay))
	}
	days := DailySummaries(points, 3)
	if len(days) != 3 {
		t.Fatalf("len = %d, want 3", len(days))
	}
	if days[0].Date != "2025-06-01" || days[2].Date != "2025-06-03" {
		t.Errorf("order = %s..%s", days[0].Date, days[2].Date)
	}
}

func TestLocalDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	if got := LocalDate(now, 0, 0); got != "2025-06-01" {
		t.Errorf("UTC today = %s", got)
	}
	if got := LocalDate(now, 10*3600, 0); got != "2025-06-02" {
		t.Errorf("UTC+10 today = %s", got)
	}
	if got := LocalDate(now, -5*3600, 2); got != "2025-06-03" {
		t.Errorf("UTC-5 day+2 = %s", got)
	}
}
