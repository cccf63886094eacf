package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/astrocast/astrocast/internal/api"
	"github.com/astrocast/astrocast/internal/climate"
	"github.com/astrocast/astrocast/internal/config"
	"github.com/astrocast/astrocast/internal/maintenance"
	"github.com/astrocast/astrocast/internal/planner"
)

type CLI struct {
	config.Config `embed:""`

	Serve    ServeCmd    `cmd:"" default:"withargs" help:"Run the web dashboard."`
	Plan     PlanCmd     `cmd:"" help:"Score a city for a date."`
	Compare  CompareCmd  `cmd:"" help:"Rank cities for the coming weekend."`
	Climate  ClimateCmd  `cmd:"" help:"Compare a month between two periods of years."`
	AIHealth AIHealthCmd `cmd:"" name:"ai-health" help:"Probe the configured AI provider."`
	Prune    PruneCmd    `cmd:"" help:"Prune the response cache and audit tables."`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("astrocast"),
		kong.Description("Weather planning for outdoor events."),
		kong.UsageOnError(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run(&cli.Config))
}

type ServeCmd struct {
	Addr    string `help:"Listen address." default:":8080" env:"ADDR"`
	Port    string `help:"Listen port, overrides the port in --addr." env:"PORT"`
	NoPrune bool   `help:"Disable the background maintenance loop."`
	AILimit int    `name:"ai-limit" help:"AI requests per minute per client IP." default:"20" env:"AI_RATE_LIMIT"`
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store != nil && !c.NoPrune {
		go maintenance.NewScheduler(a.store, maintenance.Config{
			Logger:          a.logger,
			CacheMaxEntries: cfg.CacheMaxEntries,
		}).Run(ctx)
	}

	addr := c.Addr
	if c.Port != "" {
		addr = ":" + strings.TrimPrefix(c.Port, ":")
	}
	srv := api.NewServer(api.Config{
		Planner:             a.planner,
		DB:                  a.db(),
		Logger:              a.logger,
		Addr:                addr,
		AIRequestsPerMinute: c.AILimit,
	})
	return srv.Run(ctx)
}

type PlanCmd struct {
	City    string `arg:"" help:"City name."`
	Date    string `help:"Date (YYYY-MM-DD). Defaults to today in the city's timezone."`
	Summary bool   `help:"Include an AI summary."`
}

func (c *PlanCmd) Run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.planner.Plan(ctx, c.City, c.Date, planner.PlanOptions{Summary: c.Summary})
	if err != nil {
		return err
	}
	return printJSON(p)
}

type CompareCmd struct {
	Cities []string `arg:"" help:"Cities to compare."`
	Day    string   `help:"saturday or sunday." default:"saturday" enum:"saturday,sunday"`
}

func (c *CompareCmd) Run(ctx context.Context, cfg *config.Config) error {
	day, err := planner.ParseWeekendDay(c.Day)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	cmp, err := a.planner.Compare(ctx, c.Cities, day)
	if err != nil {
		return err
	}
	return printJSON(cmp)
}

type ClimateCmd struct {
	City        string `arg:"" help:"City name."`
	Month       int    `help:"Month (1-12). Defaults to the current month."`
	HistStart   int    `help:"First year of the historical period." default:"1985"`
	HistEnd     int    `help:"Last year of the historical period." default:"2000"`
	RecentStart int    `help:"First year of the recent period." default:"2015"`
	RecentEnd   int    `help:"Last year of the recent period." default:"2025"`
	Commentary  bool   `help:"Include AI commentary."`
}

func (c *ClimateCmd) Run(ctx context.Context, cfg *config.Config) error {
	month := c.Month
	if month == 0 {
		month = int(time.Now().Month())
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.planner.Climate(ctx, planner.ClimateRequest{
		City:       c.City,
		Month:      month,
		Historical: climate.Period{Start: c.HistStart, End: c.HistEnd},
		Recent:     climate.Period{Start: c.RecentStart, End: c.RecentEnd},
		Commentary: c.Commentary,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

type AIHealthCmd struct{}

func (c *AIHealthCmd) Run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	h := a.assistant.Health(ctx)
	if err := printJSON(h); err != nil {
		return err
	}
	if !h.OK {
		return fmt.Errorf("%s provider unhealthy: %s", h.Provider, h.Category)
	}
	return nil
}

type PruneCmd struct {
	Retention time.Duration `help:"Keep audit rows newer than this." default:"720h"`
}

func (c *PruneCmd) Run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return errors.New("prune needs --db")
	}

	res, err := maintenance.NewScheduler(a.store, maintenance.Config{
		Logger:          a.logger,
		CacheMaxEntries: cfg.CacheMaxEntries,
		AuditRetention:  c.Retention,
	}).RunOnce()
	if err != nil {
		return err
	}
	a.logger.Info().
		Int64("cache_rows", res.CacheRows).
		Int64("fetch_runs", res.FetchRuns).
		Int64("ai_calls", res.AICalls).
		Msg("pruned")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
