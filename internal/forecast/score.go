package forecast

import (
	"math"

	"github.com/astrocast/astrocast/internal/models"
)

// Comfortable temperature band for outdoor events, degC.
const (
	ComfortMin = 20.0
	ComfortMax = 32.0
)

const (
	MessageFavorable   = "Safe for parade 🎉"
	MessageCautionary  = "Caution, keep backup 🌈"
	MessageUnfavorable = "Risky, expect issues ☔"
)

const (
	SuggestIndoorBackup = "Consider indoor backup ☔🎭"
	SuggestEvening      = "Better for evening/night events 🌙🎤"
	SuggestIndoorWindy  = "Outdoor risky, try indoor 🎪"
	SuggestOutdoor      = "Great for outdoor events 🎶🎉"
)

// ForecastInput holds the forecast metrics the scorer reads.
// Humidity and WindSpeed are carried for the suggestion rules; the score
// itself does not use them.
type ForecastInput struct {
	RainProbability float64
	Temp            float64
	Humidity        float64
	WindSpeed       float64
}

// HistoricalInput holds the climatology the forecast is compared against.
type HistoricalInput struct {
	AvgRainfallMM float64
	AvgTemp       float64
}

// RainProbability maps a day's total precipitation to a coarse probability.
func RainProbability(totalRainMM float64) float64 {
	switch {
	case totalRainMM <= 0:
		return 0
	case totalRainMM <= 5:
		return 70
	default:
		return 90
	}
}

// InputFromAggregate builds scorer input from a daily aggregate.
func InputFromAggregate(day models.DailyAggregate) ForecastInput {
	return ForecastInput{
		RainProbability: RainProbability(day.Rain),
		Temp:            day.Temp,
		Humidity:        day.Humidity,
		WindSpeed:       day.WindSpeed,
	}
}

// Score computes the 0-100 suitability score for an outdoor event.
func Score(f ForecastInput, h HistoricalInput) models.SuitabilityResult {
	score := 100.0

	score -= math.Min(f.RainProbability*0.5, 50)

	var tempPenalty float64
	switch {
	case f.Temp < ComfortMin:
		tempPenalty = math.Min((ComfortMin-f.Temp)*2, 30)
	case f.Temp > ComfortMax:
		tempPenalty = math.Min((f.Temp-ComfortMax)*2, 30)
	}
	score -= tempPenalty

	score -= math.Min(math.Abs(f.Temp-h.AvgTemp)*2, 20)

	rounded := int(math.RoundToEven(score))
	rounded = max(0, min(100, rounded))

	return models.SuitabilityResult{
		Score:   rounded,
		Verdict: verdictFor(rounded),
		Message: messageFor(rounded),
	}
}

func verdictFor(score int) models.Verdict {
	switch {
	case score > 70:
		return models.VerdictFavorable
	case score >= 40:
		return models.VerdictCautionary
	default:
		return models.VerdictUnfavorable
	}
}

func messageFor(score int) string {
	switch verdictFor(score) {
	case models.VerdictFavorable:
		return MessageFavorable
	case models.VerdictCautionary:
		return MessageCautionary
	default:
		return MessageUnfavorable
	}
}

// Suggest picks an event recommendation. Rules are checked in order and the
// first match wins.
func Suggest(f ForecastInput) string {
	switch {
	case f.RainProbability > 50:
		return SuggestIndoorBackup
	case f.Temp > 35:
		return SuggestEvening
	case f.WindSpeed > 30:
		return SuggestIndoorWindy
	default:
		return SuggestOutdoor
	}
}
