package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

var DefaultGeminiModels = []string{
	"gemini-1.5-flash-latest",
	"gemini-1.5-flash",
	"gemini-1.5-pro-latest",
	"gemini-1.5-pro",
	"gemini-pro",
	"gemini-1.0-pro",
}

type GeminiConfig struct {
	APIKey string
	// Model is tried before DefaultGeminiModels when set.
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini generates text with the Google Gemini API. The SDK client is built
// on first use.
type Gemini struct {
	*modelSet
	cfg GeminiConfig
	key string

	mu     sync.Mutex
	client *genai.Client
}

func NewGemini(cfg GeminiConfig) *Gemini {
	return &Gemini{
		modelSet: newModelSet(strings.TrimSpace(cfg.Model), DefaultGeminiModels),
		cfg:      cfg,
		key:      usableKey(cfg.APIKey),
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Configured() bool { return g.key != "" }

func (g *Gemini) sdk(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     g.key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.cfg.HTTPClient,
	}
	if g.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string, opts Options) (Result, error) {
	if !g.Configured() {
		return Result{}, ErrNotConfigured
	}
	client, err := g.sdk(ctx)
	if err != nil {
		return Result{}, err
	}

	return g.generate(ctx, func(ctx context.Context, model string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(opts.Temperature)),
			MaxOutputTokens: int32(opts.MaxTokens),
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
}
