// Package climate compares a calendar month's rainfall and temperature
// between a historical and a recent multi-year period.
package climate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MinSpanYears is the shortest period accepted for either side.
const MinSpanYears = 5

// Years outside [MinYear, MaxYear] are rejected.
const (
	MinYear = 1950
	MaxYear = 2090
)

// Period is an inclusive range of years.
type Period struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var (
	DefaultHistorical = Period{Start: 1985, End: 2000}
	DefaultRecent     = Period{Start: 2015, End: 2025}
)

func (p Period) Years() int {
	if p.End < p.Start {
		return 0
	}
	return p.End - p.Start + 1
}

func (p Period) Label() string {
	return fmt.Sprintf("%d-%d", p.Start, p.End)
}

// ValidationError lists every problem with a pair of periods.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid climate periods: " + strings.Join(e.Problems, "; ")
}

func (p Period) inRange() bool {
	return p.Start >= MinYear && p.Start <= MaxYear && p.End >= MinYear && p.End <= MaxYear
}

// Validate checks bounds, ordering, span and overlap of the two periods.
func Validate(hist, recent Period) error {
	var problems []string
	if !hist.inRange() {
		problems = append(problems, fmt.Sprintf("Historical years must be between %d and %d", MinYear, MaxYear))
	}
	if !recent.inRange() {
		problems = append(problems, fmt.Sprintf("Recent years must be between %d and %d", MinYear, MaxYear))
	}
	if hist.Start > hist.End {
		problems = append(problems, "Historical start must be <= end")
	}
	if recent.Start > recent.End {
		problems = append(problems, "Recent start must be <= end")
	}
	if hist.End-hist.Start < MinSpanYears-1 {
		problems = append(problems, "Historical span must be at least 5 years")
	}
	if recent.End-recent.Start < MinSpanYears-1 {
		problems = append(problems, "Recent span must be at least 5 years")
	}
	if recent.Start <= hist.End {
		problems = append(problems, "Recent period should start after historical period ends to avoid overlap")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// YearValue is one year's monthly mean rainfall (mm/day) and temperature.
type YearValue struct {
	Year        int     `json:"year"`
	Rainfall    float64 `json:"rainfall_mm_day"`
	Temperature float64 `json:"temperature_c"`
}

// PeriodSummary holds the years that had complete data and their means.
type PeriodSummary struct {
	Period      Period      `json:"period"`
	Values      []YearValue `json:"values"`
	Rainfall    float64     `json:"rainfall_mm_day"`
	Temperature float64     `json:"temperature_c"`
}

// Summarize averages values. ok is false when there are none.
func Summarize(p Period, values []YearValue) (PeriodSummary, bool) {
	if len(values) == 0 {
		return PeriodSummary{Period: p}, false
	}
	sorted := append([]YearValue(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	var rain, temp float64
	for _, v := range sorted {
		rain += v.Rainfall
		temp += v.Temperature
	}
	n := float64(len(sorted))
	return PeriodSummary{Period: p, Values: sorted, Rainfall: rain / n, Temperature: temp / n}, true
}

// Insight is the recent-versus-historical comparison for one month.
type Insight struct {
	Month           int           `json:"month"`
	Historical      PeriodSummary `json:"historical"`
	Recent          PeriodSummary `json:"recent"`
	RainDeltaAbs    float64       `json:"rain_delta_abs"`
	RainDeltaPct    float64       `json:"rain_delta_pct"`
	TempDeltaAbs    float64       `json:"temp_delta_abs"`
	TempDeltaPct    float64       `json:"temp_delta_pct"`
	RainNote        string        `json:"rain_note"`
	TempNote        string        `json:"temp_note"`
	ConfidenceRatio float64       `json:"confidence_ratio"`
	Confidence      string        `json:"confidence"`
	Commentary      string        `json:"commentary,omitempty"`
}

// Compare derives deltas, risk notes and data confidence.
func Compare(month int, hist, recent PeriodSummary) Insight {
	in := Insight{
		Month:        month,
		Historical:   hist,
		Recent:       recent,
		RainDeltaAbs: recent.Rainfall - hist.Rainfall,
		TempDeltaAbs: recent.Temperature - hist.Temperature,
	}
	if hist.Rainfall != 0 {
		in.RainDeltaPct = in.RainDeltaAbs / hist.Rainfall * 100
	}
	if hist.Temperature != 0 {
		in.TempDeltaPct = in.TempDeltaAbs / hist.Temperature * 100
	}
	in.RainNote = rainNote(in.RainDeltaPct / 100)

	tempChange := 0.0
	if hist.Temperature != 0 {
		tempChange = in.TempDeltaAbs
	}
	in.TempNote = tempNote(tempChange)

	in.ConfidenceRatio = math.Min(
		coverage(len(hist.Values), hist.Period.Years()),
		coverage(len(recent.Values), recent.Period.Years()),
	)
	in.Confidence = ConfidenceLabel(in.ConfidenceRatio)
	return in
}

func rainNote(ratio float64) string {
	switch {
	case ratio > 0.5:
		return fmt.Sprintf("🚨 Rainfall increased by %.0f%%; higher precipitation risk for events.", ratio*100)
	case ratio < -0.2:
		return fmt.Sprintf("🌿 Rainfall decreased by %.0f%%; slightly lower rain risk.", math.Abs(ratio)*100)
	default:
		return "✅ Rainfall change is moderate."
	}
}

func tempNote(change float64) string {
	switch {
	case change > 1.5:
		return fmt.Sprintf("🔥 Temp up %.1f°C, added heat stress potential.", change)
	case change < -1:
		return fmt.Sprintf("❄️ Temp down %.1f°C, cooler conditions trend.", math.Abs(change))
	default:
		return "🌡️ Temperature shift modest."
	}
}

func coverage(actual, expected int) float64 {
	if expected == 0 {
		return 0
	}
	return float64(actual) / float64(expected)
}

// ConfidenceLabel buckets the share of expected years that had data.
func ConfidenceLabel(ratio float64) string {
	switch {
	case ratio >= 0.8:
		return "High"
	case ratio >= 0.5:
		return "Moderate"
	default:
		return "Low"
	}
}

// Series merges both periods into one year-ordered list without duplicates.
func (in Insight) Series() []YearValue {
	seen := make(map[int]bool)
	var out []YearValue
	for _, v := range append(append([]YearValue(nil), in.Historical.Values...), in.Recent.Values...) {
		if seen[v.Year] {
			continue
		}
		seen[v.Year] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// TailCSV renders the last n years of the series as CSV.
func (in Insight) TailCSV(n int) string {
	series := in.Series()
	if len(series) > n {
		series = series[len(series)-n:]
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Year", "Rainfall(mm/day)", "Temp(°C)"})
	for _, v := range series {
		_ = w.Write([]string{
			strconv.Itoa(v.Year),
			strconv.FormatFloat(v.Rainfall, 'f', 3, 64),
			strconv.FormatFloat(v.Temperature, 'f', 2, 64),
		})
	}
	w.Flush()
	return buf.String()
}
