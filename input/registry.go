package input

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/audiostreams/errors"
)

// Plugin is a registered capture backend. Open inspects the URI and
// returns (nil, nil) when the scheme belongs to some other plugin; any
// non-nil error aborts the lookup.
type Plugin struct {
	Name   string
	Prefix string
	Open   func(ctx context.Context, uri string) (*Stream, error)
}

// Registry holds the capture plugins in registration order.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewRegistry returns an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plugin. Duplicate names are rejected.
func (r *Registry) Register(p Plugin) error {
	if p.Name == "" || p.Open == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Registry", "Register", "plugin needs a name and an open function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.plugins {
		if existing.Name == p.Name {
			return errors.WrapInvalid(
				fmt.Errorf("plugin %q already registered", p.Name),
				"Registry", "Register", "duplicate plugin")
		}
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Plugins returns the registered plugin names in order.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name
	}
	return names
}

// Open asks each plugin in turn to claim the URI. The first plugin that
// recognizes the scheme decides the outcome; a URI no plugin claims is
// an invalid-spec error.
func (r *Registry) Open(ctx context.Context, uri string) (*Stream, error) {
	r.mu.RLock()
	plugins := r.plugins
	r.mu.RUnlock()

	for _, p := range plugins {
		s, err := p.Open(ctx, uri)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}
	return nil, errors.WrapInvalid(errors.ErrInvalidSpec,
		"Registry", "Open", fmt.Sprintf("no plugin recognizes %q", uri))
}
