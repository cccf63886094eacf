package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrocast/astrocast/internal/models"
	"github.com/astrocast/astrocast/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{nil, ""},
		{ErrNotConfigured, CategoryNotConfigured},
		{fmt.Errorf("wrap: %w", ErrNotConfigured), CategoryNotConfigured},
		{errors.New("401 Unauthorized: Incorrect API key provided"), CategoryAuth},
		{errors.New("API key not valid. Please pass a valid API key."), CategoryAuth},
		{errors.New("429 Too Many Requests: You exceeded your current quota"), CategoryQuota},
		{errors.New("RESOURCE_EXHAUSTED"), CategoryQuota},
		{errors.New("The model `gpt-9` does not exist"), CategoryModelNotFound},
		{errors.New("models/gemini-pro is not found for API version v1beta"), CategoryModelNotFound},
		{errors.New("dial tcp: lookup api.openai.com: no such host"), CategoryNetwork},
		{context.DeadlineExceeded, CategoryNetwork},
		{errors.New("something odd"), CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
	}
}

func TestIsPlaceholderKey(t *testing.T) {
	assert.True(t, IsPlaceholderKey("REPLACE_ME"))
	assert.True(t, IsPlaceholderKey("YOUR_OPENAI_KEY"))
	assert.True(t, IsPlaceholderKey("sk-REPLACE_WITH_KEY"))
	assert.False(t, IsPlaceholderKey("sk-live-123"))
	assert.False(t, IsPlaceholderKey(""))
}

func TestPlaceholderKeyNotConfigured(t *testing.T) {
	oa := NewOpenAI(OpenAIConfig{APIKey: "REPLACE_WITH_YOUR_KEY"})
	assert.False(t, oa.Configured())
	_, err := oa.Generate(context.Background(), "hi", ProbeOptions)
	assert.ErrorIs(t, err, ErrNotConfigured)

	gm := NewGemini(GeminiConfig{APIKey: "  "})
	assert.False(t, gm.Configured())
}

func TestModelOrder(t *testing.T) {
	m := newModelSet("custom", []string{"a", "b", "custom"})
	assert.Equal(t, []string{"custom", "a", "b"}, m.order())

	m.succeeded("b")
	assert.Equal(t, []string{"b", "custom", "a"}, m.order())

	m.SetModelOverride("z")
	assert.Equal(t, []string{"z", "b", "custom", "a"}, m.order())

	m.SetModelOverride("")
	state := m.Models()
	assert.Equal(t, "b", state.Selected)
	assert.Empty(t, state.Override)
	assert.Equal(t, []string{"custom", "a", "b"}, state.Candidates)
}

func TestGenerateFallsThroughCandidates(t *testing.T) {
	m := newModelSet("", []string{"old", "new"})
	var tried []string
	res, err := m.generate(context.Background(), func(_ context.Context, model string) (string, error) {
		tried = append(tried, model)
		if model == "old" {
			return "", errors.New("404 model not found")
		}
		return "  <b>Clear</b> &amp; calm  ", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, tried)
	assert.Equal(t, "new", res.Model)
	assert.Equal(t, "Clear & calm", res.Text)
	assert.Equal(t, "new", m.Models().Selected)
	require.Len(t, m.RecentErrors(), 1)
	assert.True(t, strings.HasPrefix(m.RecentErrors()[0], "old: "))
}

func TestGenerateStopsOnAuth(t *testing.T) {
	m := newModelSet("", []string{"a", "b"})
	calls := 0
	_, err := m.generate(context.Background(), func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("401 invalid api key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CategoryAuth, Classify(err))
}

func TestRecentErrorsBounded(t *testing.T) {
	m := newModelSet("x", nil)
	long := errors.New(strings.Repeat("e", 1000))
	for i := 0; i < 60; i++ {
		m.failed(fmt.Sprintf("m%d", i), long)
	}
	errs := m.RecentErrors()
	require.Len(t, errs, maxRecentErrors)
	assert.True(t, strings.HasPrefix(errs[0], "m10: "))
	assert.Len(t, []rune(errs[0]), maxErrorLength)
}

func TestSummaryPrompt(t *testing.T) {
	dry := SummaryPrompt(models.DailyAggregate{Temp: 21.26, Humidity: 55.4, WindSpeed: 3.04})
	assert.Equal(t, "Write a friendly 2 sentence summary highlighting temperature 21.3°C, humidity 55%, wind 3.0 m/s, "+
		"no rain expected. Keep it concise and helpful for planning an outdoor event.", dry)

	wet := SummaryPrompt(models.DailyAggregate{Temp: 10, Humidity: 90, WindSpeed: 8, Rain: 4.25})
	assert.Contains(t, wet, "rain total ~4.2 mm expected")
}

func TestAnswerPrompt(t *testing.T) {
	p := AnswerPrompt("Will it rain?", `{"city":"Oslo"}`)
	assert.True(t, strings.HasPrefix(p, "You are a concise helpful weather assistant."))
	assert.True(t, strings.HasSuffix(p, "\nContext:\n{\"city\":\"Oslo\"}\n\nUser question: Will it rain?\nAnswer:"))
}

func TestClimateContext(t *testing.T) {
	got := ClimateContext(ClimateTrend{
		City: "Lagos", MonthName: "July", Confidence: "High",
		RainDeltaAbs: 1.234, RainDeltaPct: 20.55, TempDeltaAbs: -0.44, TempDeltaPct: -1.6,
		RecentPeriod: "2015-2025", HistPeriod: "1985-2000", RecentTailCSV: "Year,Rain\n2024,5.1\n",
	})
	assert.Contains(t, got, "for Lagos for month July")
	assert.Contains(t, got, "Rain delta +1.23 mm/day (+20.6%), Temp delta -0.4 °C (-1.6%).")
	assert.True(t, strings.HasSuffix(got, "2024,5.1\n"))
}

func TestWeatherContextJSON(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	days := map[int]models.DailyAggregate{
		0: {Date: "2025-06-01", Temp: 18.456, Humidity: 61.26, WindSpeed: 2.345, Rain: 0.125},
		2: {Date: "2025-06-03", Temp: 20, Humidity: 50, WindSpeed: 4, Rain: 3},
	}
	rain, temp := 2.5, 17.0
	wc := NewWeatherContext("Oslo", now, days, 2).
		WithHistorical(&models.HistoricalAverage{Month: 6, Precipitation: &rain, Temperature: &temp})

	out, err := wc.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "2025-06-01T09:30:00Z", decoded["generated_utc"])

	dayList := decoded["days"].([]any)
	require.Len(t, dayList, 2)
	first := dayList[0].(map[string]any)
	assert.Equal(t, "today", first["label"])
	assert.Equal(t, 18.46, first["avg_temp_c"])
	assert.Equal(t, 61.3, first["avg_humidity_pct"])
	assert.Equal(t, "day+2", dayList[1].(map[string]any)["label"])

	hist := decoded["historical"].(map[string]any)
	assert.Equal(t, float64(6), hist["month"])
	assert.Equal(t, 2.5, hist["avg_rainfall_mm"])
}

func TestWeatherContextWithoutHistorical(t *testing.T) {
	out, err := NewWeatherContext("Oslo", time.Now(), nil, 2).WithHistorical(nil).JSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"days":[]`)
	assert.Contains(t, out, `"historical":null`)
}

type fakeProvider struct {
	*modelSet
	configured bool
	reply      string
	err        error
	prompts    []string
}

func newFakeProvider(reply string, err error) *fakeProvider {
	return &fakeProvider{modelSet: newModelSet("fake-1", nil), configured: true, reply: reply, err: err}
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Configured() bool { return f.configured }
func (f *fakeProvider) Generate(ctx context.Context, prompt string, _ Options) (Result, error) {
	f.prompts = append(f.prompts, prompt)
	return f.generate(ctx, func(context.Context, string) (string, error) {
		return f.reply, f.err
	})
}

type memRecorder struct {
	mu    sync.Mutex
	calls []store.AICall
}

func (r *memRecorder) RecordAICall(c store.AICall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return nil
}

func TestAssistantSummarizeRecords(t *testing.T) {
	p := newFakeProvider("Great day for a picnic.", nil)
	rec := &memRecorder{}
	a := NewAssistant(p, rec, zerolog.Nop())

	got := a.Summarize(context.Background(), models.DailyAggregate{Temp: 22})
	assert.Equal(t, "Great day for a picnic.", got)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "summary", rec.calls[0].Operation)
	assert.Equal(t, "fake-1", rec.calls[0].Model)
	assert.True(t, rec.calls[0].Success)
}

func TestAssistantErrorsAreReadable(t *testing.T) {
	p := newFakeProvider("", errors.New("429 quota exceeded"))
	rec := &memRecorder{}
	a := NewAssistant(p, rec, zerolog.Nop())

	got := a.Answer(context.Background(), "ask", "Rain?", "{}")
	assert.True(t, strings.HasPrefix(got, "fake answer unavailable ("), got)
	require.Len(t, rec.calls, 1)
	assert.False(t, rec.calls[0].Success)
	assert.Equal(t, "quota", rec.calls[0].Category.String)

	diag := a.Diagnostics()
	assert.Len(t, diag.RecentErrors, 1)
}

func TestAssistantDisabled(t *testing.T) {
	p := newFakeProvider("", nil)
	p.configured = false
	a := NewAssistant(p, nil, zerolog.Nop())

	assert.Contains(t, a.Summarize(context.Background(), models.DailyAggregate{}), "(AI disabled)")
	h := a.Health(context.Background())
	assert.False(t, h.OK)
	assert.Equal(t, CategoryNotConfigured, h.Category)
	assert.Empty(t, p.prompts)
}

func TestAssistantHealth(t *testing.T) {
	p := newFakeProvider("OK", nil)
	a := NewAssistant(p, nil, zerolog.Nop())

	h := a.Health(context.Background())
	assert.True(t, h.OK)
	assert.Equal(t, "fake-1", h.Model)
	assert.Equal(t, []string{HealthProbePrompt}, p.prompts)
}

func TestSelectProvider(t *testing.T) {
	oa := NewOpenAI(OpenAIConfig{})
	gm := NewGemini(GeminiConfig{APIKey: "g-key"})
	assert.Equal(t, "gemini", SelectProvider("", oa, gm).Name())
	assert.Equal(t, "openai", SelectProvider("OpenAI", oa, gm).Name())

	oa = NewOpenAI(OpenAIConfig{APIKey: "sk-1"})
	assert.Equal(t, "openai", SelectProvider("", oa, gm).Name())
	assert.Equal(t, "gemini", SelectProvider("gemini", oa, gm).Name())
}

func TestOpenAIFallsBackToNextModel(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		seen = append(seen, body.Model)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body.Model == "gpt-retired" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"The model gpt-retired does not exist","type":"invalid_request_error","code":"model_not_found"}}`))
			return
		}
		assert.Equal(t, 0.6, body.Temperature)
		assert.Equal(t, 120, body.MaxTokens)
		_, _ = fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":%q,
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" Mild and dry. "}}]}`, body.Model)
	}))
	defer server.Close()

	oa := NewOpenAI(OpenAIConfig{APIKey: "sk-test", Model: "gpt-retired", BaseURL: server.URL, HTTPClient: server.Client()})
	res, err := oa.Generate(context.Background(), "summarize", SummaryOptions)
	require.NoError(t, err)
	assert.Equal(t, "Mild and dry.", res.Text)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, []string{"gpt-retired", "gpt-4o-mini"}, seen)
	assert.Equal(t, "gpt-4o-mini", oa.Models().Selected)
	require.Len(t, oa.RecentErrors(), 1)
}
