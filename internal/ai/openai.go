package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModels are tried after OPENAI_MODEL, newest cheap model first.
var DefaultOpenAIModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-4o-2024-08-06",
	"gpt-4.1-mini",
	"gpt-4.1",
	"gpt-3.5-turbo",
}

type OpenAIConfig struct {
	APIKey string
	// Model is tried before DefaultOpenAIModels when set.
	Model string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAI generates text with the chat completions API.
type OpenAI struct {
	*modelSet
	client     openai.Client
	configured bool
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	key := usableKey(cfg.APIKey)

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAI{
		modelSet:   newModelSet(strings.TrimSpace(cfg.Model), DefaultOpenAIModels),
		client:     openai.NewClient(opts...),
		configured: key != "",
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Configured() bool { return o.configured }

func (o *OpenAI) Generate(ctx context.Context, prompt string, opts Options) (Result, error) {
	if !o.configured {
		return Result{}, ErrNotConfigured
	}
	return o.generate(ctx, func(ctx context.Context, model string) (string, error) {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(opts.Temperature),
			MaxTokens:   openai.Int(int64(opts.MaxTokens)),
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices returned")
		}
		return resp.Choices[0].Message.Content, nil
	})
}
