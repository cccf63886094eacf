package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	maxRecentErrors = 50
	maxErrorLength  = 400
)

// modelSet is the per-instance candidate list, explicit override, last
// working model and recent error log of one provider.
type modelSet struct {
	mu         sync.Mutex
	candidates []string
	override   string
	selected   string
	errs       []string
}

// newModelSet puts envModel ahead of defaults and drops blanks and
// duplicates.
func newModelSet(envModel string, defaults []string) *modelSet {
	m := &modelSet{}
	seen := make(map[string]bool)
	for _, name := range append([]string{envModel}, defaults...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		m.candidates = append(m.candidates, name)
	}
	return m
}

// order returns the override, then the selected model, then the rest.
func (m *modelSet) order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.candidates)+2)
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add(m.override)
	add(m.selected)
	for _, c := range m.candidates {
		add(c)
	}
	return out
}

func (m *modelSet) succeeded(model string) {
	m.mu.Lock()
	m.selected = model
	m.mu.Unlock()
}

func (m *modelSet) failed(model string, err error) {
	entry := truncate(model+": "+err.Error(), maxErrorLength)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, entry)
	if len(m.errs) > maxRecentErrors {
		m.errs = m.errs[len(m.errs)-maxRecentErrors:]
	}
}

func (m *modelSet) Models() ModelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ModelState{
		Candidates: append([]string(nil), m.candidates...),
		Override:   m.override,
		Selected:   m.selected,
	}
}

// SetModelOverride pins model ahead of every other candidate. An empty
// string clears the override.
func (m *modelSet) SetModelOverride(model string) {
	m.mu.Lock()
	m.override = model
	m.mu.Unlock()
}

// RecentErrors returns up to the last 50 failures, oldest first.
func (m *modelSet) RecentErrors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errs...)
}

// generate tries each model in order until one answers. Auth failures and
// cancellation end the walk.
func (m *modelSet) generate(ctx context.Context, call func(ctx context.Context, model string) (string, error)) (Result, error) {
	order := m.order()
	if len(order) == 0 {
		return Result{}, errors.New("ai: no model candidates")
	}

	var lastErr error
	for _, model := range order {
		text, err := call(ctx, model)
		if err == nil {
			m.succeeded(model)
			return Result{Text: normalize(text), Model: model}, nil
		}
		m.failed(model, err)
		lastErr = fmt.Errorf("%s: %w", model, err)
		if ctx.Err() != nil || Classify(err) == CategoryAuth {
			break
		}
	}
	return Result{}, lastErr
}
