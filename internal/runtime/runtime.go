// Package runtime binds the grading primitives (execution, token
// comparison, structural comparison) for each supported source language.
package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/sandbox"
)

// LanguageRuntime implements the comparison and execution primitives for one
// language. A primitive a runtime cannot provide reports
// InfraAvailable=false, which lets the strategy router degrade.
type LanguageRuntime interface {
	Name() string
	Execute(ctx context.Context, code string) sandbox.Result
	CompareByTokens(user, expected string, alternatives []string) domain.StrategyResult
	CompareByAST(user, expected string, alternatives []string) domain.StrategyResult
}

// Registry maps language tags to runtimes.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]LanguageRuntime
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[string]LanguageRuntime)}
}

// Register adds or replaces the runtime for its language.
func (r *Registry) Register(rt LanguageRuntime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[rt.Name()] = rt
}

// Get returns the runtime for a language tag.
func (r *Registry) Get(lang string) (LanguageRuntime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.runtimes[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLanguage, lang)
	}
	return rt, nil
}

// Languages lists registered language tags in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.runtimes))
	for name := range r.runtimes {
		langs = append(langs, name)
	}
	sort.Strings(langs)
	return langs
}
