// Package ai wraps the hosted language models used for forecast summaries,
// free-form weather questions and comparison commentary.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/astrocast/astrocast/internal/htmlutil"
)

// ErrNotConfigured is returned when a provider has no usable API key.
var ErrNotConfigured = errors.New("ai: provider not configured")

// Category buckets provider errors for diagnostics and metrics.
type Category string

const (
	CategoryNotConfigured Category = "not_configured"
	CategoryAuth          Category = "auth"
	CategoryQuota         Category = "quota"
	CategoryModelNotFound Category = "model_not_found"
	CategoryNetwork       Category = "network"
	CategoryUnknown       Category = "unknown"
)

// Options are sampling settings for one completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

var (
	SummaryOptions = Options{Temperature: 0.6, MaxTokens: 120}
	AnswerOptions  = Options{Temperature: 0.5, MaxTokens: 400}
	ProbeOptions   = Options{Temperature: 0, MaxTokens: 5}
)

// Result is a completion and the model that produced it.
type Result struct {
	Text  string
	Model string
}

// ModelState describes model selection on a provider instance.
type ModelState struct {
	Candidates []string `json:"candidates"`
	Override   string   `json:"override,omitempty"`
	Selected   string   `json:"selected,omitempty"`
}

// Provider is a language model backend. Implementations try their model
// candidates in order and remember the last one that worked.
type Provider interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, prompt string, opts Options) (Result, error)
	Models() ModelState
	SetModelOverride(model string)
	RecentErrors() []string
}

// IsPlaceholderKey reports whether key looks like an unfilled template
// value such as "REPLACE_WITH_YOUR_KEY".
func IsPlaceholderKey(key string) bool {
	return strings.HasPrefix(key, "REPLACE_") ||
		strings.HasPrefix(key, "YOUR_") ||
		strings.Contains(key, "REPLACE_WITH")
}

// usableKey trims key and blanks it when it is a placeholder.
func usableKey(key string) string {
	key = strings.TrimSpace(key)
	if IsPlaceholderKey(key) {
		return ""
	}
	return key
}

var categoryMarkers = []struct {
	category Category
	markers  []string
}{
	{CategoryAuth, []string{"401", "403", "unauthorized", "invalid api key", "incorrect api key",
		"api key not valid", "api_key_invalid", "permission denied", "permission_denied"}},
	{CategoryQuota, []string{"429", "quota", "rate limit", "rate_limit", "resource_exhausted", "too many requests"}},
	{CategoryModelNotFound, []string{"404", "model_not_found", "not found", "does not exist", "is not supported"}},
	{CategoryNetwork, []string{"timeout", "deadline exceeded", "connection refused", "connection reset",
		"no such host", "eof", "network", "tls handshake"}},
}

// Classify maps an error to a Category by matching its message.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotConfigured) {
		return CategoryNotConfigured
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	msg := strings.ToLower(err.Error())
	for _, cm := range categoryMarkers {
		for _, m := range cm.markers {
			if strings.Contains(msg, m) {
				return cm.category
			}
		}
	}
	return CategoryUnknown
}

// normalize turns model output into plain trimmed text.
func normalize(text string) string {
	text = strings.TrimSpace(text)
	if strings.ContainsAny(text, "<&") {
		text = strings.TrimSpace(htmlutil.ToText(text))
	}
	return text
}
