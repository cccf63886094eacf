package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/api"
	"github.com/astrocast/astrocast/internal/cache"
	"github.com/astrocast/astrocast/internal/config"
	"github.com/astrocast/astrocast/internal/geocoding"
	"github.com/astrocast/astrocast/internal/nasapower"
	"github.com/astrocast/astrocast/internal/openweather"
	"github.com/astrocast/astrocast/internal/planner"
	"github.com/astrocast/astrocast/internal/store"
)

// app holds the wired dependencies shared by every command.
type app struct {
	logger    zerolog.Logger
	store     *store.Store
	assistant *ai.Assistant
	planner   *planner.Service
}

func newApp(_ context.Context, cfg *config.Config) (*app, error) {
	a := &app{logger: cfg.Logger(os.Stderr)}

	var respCache *cache.Cache
	if cfg.DB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		st, err := store.Open(cfg.DB, a.logger)
		if err != nil {
			return nil, err
		}
		a.store = st
		respCache = cache.New(st, a.logger, cache.WithAuditor(st))
		a.logger.Debug().Str("path", cfg.DB).Msg("database opened")
	} else {
		respCache = cache.New(cache.NewMemory(cfg.CacheMaxEntries), a.logger)
		a.logger.Debug().Msg("no database, caching in memory")
	}

	weather := openweather.NewClient(openweather.ClientConfig{
		APIKey: cfg.OpenWeatherAPIKey,
		Cache:  respCache,
		Logger: a.logger,
	})
	if cfg.OpenWeatherAPIKey == "" {
		a.logger.Warn().Msg("OPENWEATHER_API_KEY not set, forecasts will fail")
	}
	power := nasapower.NewClient(nasapower.ClientConfig{Cache: respCache, Logger: a.logger})
	geo := geocoding.New(geocoding.Config{
		UserAgent: cfg.NominatimUserAgent,
		Cache:     respCache,
		Logger:    a.logger,
	})

	provider := ai.SelectProvider(cfg.AIProvider,
		ai.NewOpenAI(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL}),
		ai.NewGemini(ai.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}),
	)
	var recorder ai.Recorder
	if a.store != nil {
		recorder = a.store
	}
	a.assistant = ai.NewAssistant(provider, recorder, a.logger)
	a.logger.Info().
		Str("ai_provider", provider.Name()).
		Bool("ai_configured", provider.Configured()).
		Msg("ai provider selected")

	a.planner = planner.New(planner.Config{
		Weather:        weather,
		Climatology:    power,
		Geocoder:       geo,
		Assistant:      a.assistant,
		Logger:         a.logger,
		ClimateWorkers: cfg.ClimateWorkers,
	})
	return a, nil
}

// db returns the store as a health check target, or nil without a database.
func (a *app) db() api.Pinger {
	if a.store == nil {
		return nil
	}
	return a.store
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error().Err(err).Msg("close database")
		}
	}
}
