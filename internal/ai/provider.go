package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mode mirrors the workspace chat mode without importing it.
type Mode string

const (
	ModeCreator  Mode = "CREATOR"
	ModeQuestion Mode = "QUESTION"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FilePart is an attached binary encoded for transport.
type FilePart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// Request is one full turn handed to a provider.
type Request struct {
	Prompt      string
	History     []Message
	Files       []FilePart
	ModelID     string
	Mode        Mode
	CurrentCode string
}

// Provider generates a complete response in one call.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// StreamProvider yields the response as UTF-8 text fragments; concatenating
// the fragments in order is the cumulative response text at every point. Both
// channels are closed when streaming ends. Cancelling ctx stops fragment
// production silently.
type StreamProvider interface {
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// Titler produces a short display name for a project, best effort.
type Titler interface {
	GenerateTitle(ctx context.Context, prompt, codeSnippet string) (string, error)
}

type ProviderFactory func(ctx context.Context, model string) (StreamProvider, error)

// Registry maps provider names to factories, so the surface can pick the
// backend from configuration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (StreamProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}
