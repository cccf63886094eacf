package forecast

import (
	"fmt"

	"github.com/astrocast/astrocast/internal/models"
)

// glyphKey identifies a display glyph by provider condition label and phase.
type glyphKey struct {
	condition string
	phase     models.Phase
}

// DefaultGlyph is shown for any condition/phase pair without a mapping.
const DefaultGlyph = "☀️"

var glyphs = map[glyphKey]string{
	{"Clear", models.PhaseDay}:          "☀️",
	{"Clear", models.PhaseNight}:        "🌕",
	{"Clouds", models.PhaseDay}:         "☁️",
	{"Clouds", models.PhaseNight}:       "☁️",
	{"Rain", models.PhaseDay}:           "🌧️",
	{"Rain", models.PhaseNight}:         "🌧️",
	{"Drizzle", models.PhaseDay}:        "🌦️",
	{"Drizzle", models.PhaseNight}:      "🌦️",
	{"Thunderstorm", models.PhaseDay}:   "⛈️",
	{"Thunderstorm", models.PhaseNight}: "⛈️",
	{"Snow", models.PhaseDay}:           "❄️",
	{"Snow", models.PhaseNight}:         "❄️",
	{"Mist", models.PhaseDay}:           "🌫️",
	{"Mist", models.PhaseNight}:         "🌫️",
	{"Smoke", models.PhaseDay}:          "🌫️",
	{"Smoke", models.PhaseNight}:        "🌫️",
	{"Haze", models.PhaseDay}:           "🌫️",
	{"Haze", models.PhaseNight}:         "🌫️",
	{"Dust", models.PhaseDay}:           "🌫️",
	{"Dust", models.PhaseNight}:         "🌫️",
	{"Fog", models.PhaseDay}:            "🌫️",
	{"Fog", models.PhaseNight}:          "🌫️",
	{"Sand", models.PhaseDay}:           "🌫️",
	{"Sand", models.PhaseNight}:         "🌫️",
	{"Ash", models.PhaseDay}:            "🌫️",
	{"Ash", models.PhaseNight}:          "🌫️",
	{"Squall", models.PhaseDay}:         "💨",
	{"Squall", models.PhaseNight}:       "💨",
	{"Tornado", models.PhaseDay}:        "🌪️",
	{"Tornado", models.PhaseNight}:      "🌪️",
}

// Glyph returns the display glyph for a condition label and phase.
func Glyph(condition string, phase models.Phase) string {
	if g, ok := glyphs[glyphKey{condition, phase}]; ok {
		return g
	}
	return DefaultGlyph
}

// WeatherCondition is a coarse visual category used to theme the UI.
type WeatherCondition string

const (
	ConditionClearWarm WeatherCondition = "clear_warm"
	ConditionClearCool WeatherCondition = "clear_cool"
	ConditionCloudy    WeatherCondition = "cloudy"
	ConditionLightRain WeatherCondition = "light_rain"
	ConditionHeavyRain WeatherCondition = "heavy_rain"
	ConditionStorm     WeatherCondition = "storm"
	ConditionFog       WeatherCondition = "fog"
	ConditionSnow      WeatherCondition = "snow"
	ConditionHot       WeatherCondition = "hot"
)

// ExtractCondition maps a day's aggregate to a visual category. Temperature
// extremes win over the provider label.
func ExtractCondition(day models.DailyAggregate) WeatherCondition {
	if day.Temp >= 35 {
		return ConditionHot
	}

	switch day.Condition {
	case "Thunderstorm", "Squall", "Tornado":
		return ConditionStorm
	case "Rain":
		if day.Rain > 5 {
			return ConditionHeavyRain
		}
		return ConditionLightRain
	case "Drizzle":
		return ConditionLightRain
	case "Snow":
		return ConditionSnow
	case "Mist", "Smoke", "Haze", "Dust", "Fog", "Sand", "Ash":
		return ConditionFog
	case "Clouds":
		return ConditionCloudy
	}

	if day.Temp >= 25 {
		return ConditionClearWarm
	}
	return ConditionClearCool
}

// ConditionWithPhase combines a category with a phase for palette lookups.
func ConditionWithPhase(condition WeatherCondition, phase models.Phase) string {
	return fmt.Sprintf("%s_%s", condition, phase)
}
