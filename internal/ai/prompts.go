package ai

import (
	"fmt"
	"strings"

	"github.com/astrocast/astrocast/internal/models"
)

const (
	HealthProbePrompt = "Return the word OK"

	// CompareQuestion is asked over a CSV of compared cities.
	CompareQuestion = "Which city is better and why?"

	// ClimateQuestion is asked over a climate trend context.
	ClimateQuestion = "Climate trend commentary"

	answerPreamble = "You are a concise helpful weather assistant. Use only the factual data provided in context if present. " +
		"If user asks for a forecast beyond available range (5 days) politely explain the limit."
)

// SummaryPrompt asks for a two sentence event-planning summary of a day.
func SummaryPrompt(day models.DailyAggregate) string {
	parts := []string{
		fmt.Sprintf("temperature %.1f°C", day.Temp),
		fmt.Sprintf("humidity %.0f%%", day.Humidity),
		fmt.Sprintf("wind %.1f m/s", day.WindSpeed),
	}
	if day.Rain > 0 {
		parts = append(parts, fmt.Sprintf("rain total ~%.1f mm expected", day.Rain))
	} else {
		parts = append(parts, "no rain expected")
	}
	return "Write a friendly 2 sentence summary highlighting " + strings.Join(parts, ", ") +
		". Keep it concise and helpful for planning an outdoor event."
}

// AnswerPrompt wraps a user question with optional factual context.
func AnswerPrompt(question, context string) string {
	return answerPreamble + "\nContext:\n" + context + "\n\nUser question: " + question + "\nAnswer:"
}

// GroundedQuestion restricts an answer to the numbers in a JSON context.
func GroundedQuestion(question string) string {
	return "You are a precise weather assistant. Use ONLY the numeric facts in the JSON context. " +
		"If a value for a requested day (e.g., day+1 rain) is missing, state that it is unavailable. " +
		"Provide concise sentences (<=120 words). Avoid speculation. " +
		"User question: " + question
}

// CompareContext frames a CSV table of cities for a weekend comparison.
func CompareContext(csv string) string {
	return "Compare these cities for a weekend outdoor parade and give pros and cons then a recommendation.\n" + csv
}

// ClimateTrend carries the figures quoted in climate commentary.
type ClimateTrend struct {
	City          string
	MonthName     string
	Confidence    string
	RainDeltaAbs  float64
	RainDeltaPct  float64
	TempDeltaAbs  float64
	TempDeltaPct  float64
	RecentPeriod  string
	HistPeriod    string
	RecentTailCSV string
}

// ClimateContext builds the commentary context for a climate comparison.
func ClimateContext(t ClimateTrend) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide a concise (<=120 words) climate trend commentary for %s for month %s. ", t.City, t.MonthName)
	b.WriteString("Highlight rainfall and temperature direction, magnitude (% and °C), and event planning implications. ")
	fmt.Fprintf(&b, "Data confidence is %s. Data (recent vs historical):\n", t.Confidence)
	fmt.Fprintf(&b, "Rain delta %+.2f mm/day (%+.1f%%), Temp delta %+.1f °C (%+.1f%%).\n",
		t.RainDeltaAbs, t.RainDeltaPct, t.TempDeltaAbs, t.TempDeltaPct)
	fmt.Fprintf(&b, "Recent period %s vs historical %s.\n", t.RecentPeriod, t.HistPeriod)
	b.WriteString("Recent tail data:\n")
	b.WriteString(t.RecentTailCSV)
	return b.String()
}
