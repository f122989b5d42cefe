// Package backend defines the generation backends the job handlers run on.
// Implementations include local llama.cpp inference and an OpenAI-compatible
// remote fallback; the interface keeps handlers testable with mocks.
package backend

import "context"

// Params are the per-request generation knobs.
type Params struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
}

// Generation is the outcome of a single completion call.
type Generation struct {
	Text string

	// Token counts for usage accounting. Backends that cannot observe real
	// token boundaries report whitespace-word approximations.
	PromptTokens     int
	CompletionTokens int
}

// Backend produces completions for rendered prompts.
type Backend interface {
	// Generate produces a completion for the given prompt.
	Generate(ctx context.Context, prompt string, params Params) (Generation, error)

	// Name returns a human-readable name for the backend.
	Name() string

	// Close releases any resources held by the backend.
	Close() error
}

// Registry manages available backends and allows lookup by name.
type Registry struct {
	backends    map[string]Backend
	defaultName string
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register adds a backend to the registry. The first registered backend
// becomes the default.
func (r *Registry) Register(name string, b Backend) {
	r.backends[name] = b
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// SetDefault sets which backend to use when none is specified.
func (r *Registry) SetDefault(name string) {
	r.defaultName = name
}

// Get returns a backend by name, or the default if name is empty.
func (r *Registry) Get(name string) (Backend, bool) {
	if name == "" {
		name = r.defaultName
	}
	b, ok := r.backends[name]
	return b, ok
}

// Close releases all backend resources.
func (r *Registry) Close() error {
	for _, b := range r.backends {
		if err := b.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the names of all registered backends.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}
