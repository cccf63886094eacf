package ai

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/astrocast/astrocast/internal/metrics"
	"github.com/astrocast/astrocast/internal/models"
	"github.com/astrocast/astrocast/internal/store"
)

// Recorder persists AI call outcomes.
type Recorder interface {
	RecordAICall(c store.AICall) error
}

// Assistant fronts one Provider with the user-facing operations and logs
// every call.
type Assistant struct {
	provider Provider
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAssistant returns an Assistant for p. recorder may be nil.
func NewAssistant(p Provider, recorder Recorder, logger zerolog.Logger) *Assistant {
	return &Assistant{
		provider: p,
		recorder: recorder,
		logger:   logger.With().Str("component", "ai").Str("provider", p.Name()).Logger(),
		now:      time.Now,
	}
}

// SelectProvider picks the provider named by AI_PROVIDER. Without a name the
// first configured of OpenAI then Gemini wins, falling back to OpenAI.
func SelectProvider(name string, oa *OpenAI, gm *Gemini) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return gm
	case "openai":
		return oa
	}
	if !oa.Configured() && gm.Configured() {
		return gm
	}
	return oa
}

func (a *Assistant) Provider() Provider { return a.provider }

func (a *Assistant) Configured() bool { return a.provider.Configured() }

// Complete runs one prompt and records the attempt under operation.
func (a *Assistant) Complete(ctx context.Context, operation, prompt string, opts Options) (Result, error) {
	start := a.now()
	res, err := a.provider.Generate(ctx, prompt, opts)
	elapsed := a.now().Sub(start)

	outcome := "ok"
	call := store.AICall{
		CalledAt:   start.UTC(),
		Provider:   a.provider.Name(),
		Model:      res.Model,
		Operation:  operation,
		Success:    err == nil,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		cat := Classify(err)
		outcome = string(cat)
		call.Category = sql.NullString{String: outcome, Valid: true}
		call.ErrorMessage = sql.NullString{String: truncate(err.Error(), maxErrorLength), Valid: true}
		if cat != CategoryNotConfigured {
			a.logger.Warn().Err(err).Str("operation", operation).Str("category", outcome).Msg("generation failed")
		}
	} else {
		a.logger.Debug().Str("operation", operation).Str("model", res.Model).Dur("elapsed", elapsed).Msg("generation complete")
	}
	metrics.AICallsTotal.WithLabelValues(a.provider.Name(), outcome).Inc()

	if a.recorder != nil {
		if rerr := a.recorder.RecordAICall(call); rerr != nil {
			a.logger.Error().Err(rerr).Msg("recording ai call")
		}
	}
	return res, err
}

// Summarize returns a short planning summary of day, or a readable notice
// when the provider is unavailable.
func (a *Assistant) Summarize(ctx context.Context, day models.DailyAggregate) string {
	if !a.Configured() {
		return a.disabledNotice()
	}
	res, err := a.Complete(ctx, "summary", SummaryPrompt(day), SummaryOptions)
	if err != nil {
		return fmt.Sprintf("%s summary unavailable (%v).", a.label(), err)
	}
	if res.Text == "" {
		return "No summary generated"
	}
	return res.Text
}

// Answer responds to a free-form question using facts as its context.
func (a *Assistant) Answer(ctx context.Context, operation, question, facts string) string {
	if !a.Configured() {
		return a.disabledNotice()
	}
	res, err := a.Complete(ctx, operation, AnswerPrompt(question, facts), AnswerOptions)
	if err != nil {
		return fmt.Sprintf("%s answer unavailable (%v).", a.label(), err)
	}
	if res.Text == "" {
		return "No answer generated"
	}
	return res.Text
}

type Health struct {
	Provider   string   `json:"provider"`
	Configured bool     `json:"configured"`
	OK         bool     `json:"ok"`
	Model      string   `json:"model,omitempty"`
	Category   Category `json:"category,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Health sends a tiny probe prompt and reports whether the provider answers.
func (a *Assistant) Health(ctx context.Context) Health {
	h := Health{Provider: a.provider.Name(), Configured: a.Configured()}
	if !h.Configured {
		h.Category = CategoryNotConfigured
		h.Error = "API key missing/invalid"
		return h
	}
	res, err := a.Complete(ctx, "health", HealthProbePrompt, ProbeOptions)
	if err != nil {
		h.Category = Classify(err)
		h.Error = truncate(err.Error(), 300)
		return h
	}
	h.OK = true
	h.Model = res.Model
	return h
}

type Diagnostics struct {
	Provider     string     `json:"provider"`
	Configured   bool       `json:"configured"`
	Models       ModelState `json:"models"`
	RecentErrors []string   `json:"recent_errors"`
}

func (a *Assistant) Diagnostics() Diagnostics {
	errs := a.provider.RecentErrors()
	if errs == nil {
		errs = []string{}
	}
	return Diagnostics{
		Provider:     a.provider.Name(),
		Configured:   a.Configured(),
		Models:       a.provider.Models(),
		RecentErrors: errs,
	}
}

func (a *Assistant) label() string {
	switch a.provider.Name() {
	case "openai":
		return "OpenAI"
	case "gemini":
		return "Gemini"
	}
	return a.provider.Name()
}

func (a *Assistant) disabledNotice() string {
	return fmt.Sprintf("(AI disabled) Configure %s_API_KEY to enable %s.", strings.ToUpper(a.provider.Name()), a.label())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
