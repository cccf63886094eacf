package forecast

import "github.com/astrocast/astrocast/internal/models"

// Palette defines the color scheme for a weather condition and phase.
type Palette struct {
	// Background is the main page background color
	Background string
	// Card is the background for cards/panels
	Card string
	// CardBorder is the border for cards
	CardBorder string
	Text       string
	TextMuted  string
	// Accent is used for links and the score gauge
	Accent    string
	AccentAlt string
}

// DefaultPalette is the fallback light theme.
var DefaultPalette = Palette{
	Background: "#f4f6fb",
	Card:       "#ffffff",
	CardBorder: "#dde3ee",
	Text:       "#1d2433",
	TextMuted:  "#6b7488",
	Accent:     "#2f6fe4",
	AccentAlt:  "#e4572e",
}

// palettes maps condition+phase keys to color schemes.
// Day themes are light, night themes are dark.
var palettes = map[string]Palette{
	"clear_warm_day": {
		Background: "#fdf5e6",
		Card:       "#ffffff",
		CardBorder: "#f0dcb8",
		Text:       "#2e2418",
		TextMuted:  "#7d6a52",
		Accent:     "#dd7a1c",
		AccentAlt:  "#c2410c",
	},
	"clear_warm_night": {
		Background: "#10101c",
		Card:       "#1a1a2a",
		CardBorder: "#2c2c42",
		Text:       "#e6e6f0",
		TextMuted:  "#7a7a96",
		Accent:     "#8fa8e0",
		AccentAlt:  "#e08a5c",
	},
	"clear_cool_day": {
		Background: "#eef5fc",
		Card:       "#ffffff",
		CardBorder: "#cfe0f2",
		Text:       "#17263a",
		TextMuted:  "#5b7089",
		Accent:     "#2f7fd0",
		AccentAlt:  "#d0603a",
	},
	"clear_cool_night": {
		Background: "#0b1220",
		Card:       "#131c2e",
		CardBorder: "#22304a",
		Text:       "#dfe7f3",
		TextMuted:  "#6d7f9c",
		Accent:     "#6f9be0",
		AccentAlt:  "#d88b70",
	},
	"cloudy_day": {
		Background: "#eceff3",
		Card:       "#f9fafb",
		CardBorder: "#d3d8df",
		Text:       "#272c33",
		TextMuted:  "#69717d",
		Accent:     "#51709a",
		AccentAlt:  "#b5653e",
	},
	"cloudy_night": {
		Background: "#14171c",
		Card:       "#1d2128",
		CardBorder: "#2d333d",
		Text:       "#dadfe6",
		TextMuted:  "#737c89",
		Accent:     "#7b93b3",
		AccentAlt:  "#bf8266",
	},
	"light_rain_day": {
		Background: "#e6edf2",
		Card:       "#f6f9fb",
		CardBorder: "#c6d4de",
		Text:       "#1f2c36",
		TextMuted:  "#5d7180",
		Accent:     "#3b7ea1",
		AccentAlt:  "#a8603e",
	},
	"light_rain_night": {
		Background: "#0d141a",
		Card:       "#152028",
		CardBorder: "#223240",
		Text:       "#d6e2ea",
		TextMuted:  "#66808f",
		Accent:     "#5a9cbe",
		AccentAlt:  "#b07a62",
	},
	"heavy_rain_day": {
		Background: "#d9e1e8",
		Card:       "#edf1f5",
		CardBorder: "#b4c2cf",
		Text:       "#18232d",
		TextMuted:  "#52626f",
		Accent:     "#2b6688",
		AccentAlt:  "#9c4f32",
	},
	"heavy_rain_night": {
		Background: "#080d12",
		Card:       "#10181f",
		CardBorder: "#1c2832",
		Text:       "#cfdbe4",
		TextMuted:  "#5b7080",
		Accent:     "#4a88aa",
		AccentAlt:  "#a06a55",
	},
	"storm_day": {
		Background: "#d4d6de",
		Card:       "#e8e9ef",
		CardBorder: "#aeb1bf",
		Text:       "#1a1c26",
		TextMuted:  "#565a6c",
		Accent:     "#6650a8",
		AccentAlt:  "#c0392b",
	},
	"storm_night": {
		Background: "#0a0a12",
		Card:       "#13131e",
		CardBorder: "#22223a",
		Text:       "#d8d8e8",
		TextMuted:  "#6a6a88",
		Accent:     "#9a85dd",
		AccentAlt:  "#dd6655",
	},
	"fog_day": {
		Background: "#eeeeec",
		Card:       "#fafaf8",
		CardBorder: "#dadad4",
		Text:       "#2c2c28",
		TextMuted:  "#7a7a72",
		Accent:     "#6f7f78",
		AccentAlt:  "#a8755a",
	},
	"fog_night": {
		Background: "#151615",
		Card:       "#1f201f",
		CardBorder: "#303230",
		Text:       "#dcdcd8",
		TextMuted:  "#7a7c78",
		Accent:     "#8fa098",
		AccentAlt:  "#b88a70",
	},
	"snow_day": {
		Background: "#f3f7fb",
		Card:       "#ffffff",
		CardBorder: "#d8e4ef",
		Text:       "#1c2a38",
		TextMuted:  "#62778c",
		Accent:     "#4a90c8",
		AccentAlt:  "#b86e5a",
	},
	"snow_night": {
		Background: "#0a1018",
		Card:       "#121b26",
		CardBorder: "#1f2c3c",
		Text:       "#e0e8f2",
		TextMuted:  "#6a80a0",
		Accent:     "#7aaee0",
		AccentAlt:  "#c08878",
	},
	"hot_day": {
		Background: "#fff0e0",
		Card:       "#fffaf4",
		CardBorder: "#f5cfa8",
		Text:       "#33200f",
		TextMuted:  "#8a6440",
		Accent:     "#e0601a",
		AccentAlt:  "#b3261e",
	},
	"hot_night": {
		Background: "#1a0f0a",
		Card:       "#261812",
		CardBorder: "#3c261c",
		Text:       "#f2e2d6",
		TextMuted:  "#a07e68",
		Accent:     "#f08a4a",
		AccentAlt:  "#e0503a",
	},
}

// GetPalette returns the color palette for a weather condition and phase.
func GetPalette(condition WeatherCondition, phase models.Phase) Palette {
	if p, ok := palettes[ConditionWithPhase(condition, phase)]; ok {
		return p
	}
	return DefaultPalette
}

// PaletteFor themes a daily aggregate.
func PaletteFor(day models.DailyAggregate) Palette {
	return GetPalette(ExtractCondition(day), day.Phase)
}
