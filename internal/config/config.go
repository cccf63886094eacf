// Package config holds the settings shared by every astrocast command.
// Fields are populated by kong from flags and environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	LogLevel  string `help:"Log level." default:"info" enum:"debug,info,warn,error" env:"LOG_LEVEL"`
	LogFormat string `help:"Log output format." default:"console" enum:"console,json" env:"LOG_FORMAT"`

	DB              string `name:"db" help:"SQLite database path. Empty keeps the response cache in memory." default:"data/astrocast.db" env:"ASTROCAST_DB"`
	CacheMaxEntries int    `help:"Maximum cached upstream responses." default:"5000" env:"CACHE_MAX_ENTRIES"`

	OpenWeatherAPIKey  string `name:"openweather-api-key" help:"OpenWeatherMap API key." env:"OPENWEATHER_API_KEY"`
	NominatimUserAgent string `help:"User-Agent sent to Nominatim." default:"astrocast/1.0" env:"NOMINATIM_USER_AGENT"`
	ClimateWorkers     int    `help:"Concurrent NASA POWER requests." default:"4" env:"CLIMATE_WORKERS"`

	AIProvider    string `name:"ai-provider" help:"AI provider (openai or gemini). Empty picks the first configured." env:"AI_PROVIDER"`
	OpenAIAPIKey  string `name:"openai-api-key" help:"OpenAI API key." env:"OPENAI_API_KEY"`
	OpenAIModel   string `name:"openai-model" help:"Preferred OpenAI model." env:"OPENAI_MODEL"`
	OpenAIBaseURL string `name:"openai-base-url" help:"OpenAI-compatible endpoint." env:"OPENAI_BASE_URL"`
	GeminiAPIKey  string `name:"gemini-api-key" help:"Google Gemini API key." env:"GEMINI_API_KEY"`
	GeminiModel   string `name:"gemini-model" help:"Preferred Gemini model." env:"GEMINI_MODEL"`
}

// Validate is called by kong after parsing.
func (c *Config) Validate() error {
	switch c.AIProvider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("--ai-provider must be openai or gemini, got %q", c.AIProvider)
	}
	if c.ClimateWorkers < 1 {
		return fmt.Errorf("--climate-workers must be at least 1")
	}
	return nil
}

// Logger builds the process logger. Console output is for humans, JSON for
// log shippers.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if c.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "astrocast").Logger()
}
