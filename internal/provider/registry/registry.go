package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/davidbz/hearth/internal/domain"
)

// Registry implements the ProviderRegistry interface.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderID]domain.Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:        sync.RWMutex{},
		providers: make(map[domain.ProviderID]domain.Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(_ context.Context, provider domain.Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	if _, err := domain.ParseProviderID(string(name)); err != nil {
		return fmt.Errorf("cannot register provider: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider

	return nil
}

// Get retrieves a provider by id.
func (r *Registry) Get(_ context.Context, id domain.ProviderID) (domain.Provider, error) {
	if id == "" {
		return nil, &domain.ConfigurationError{Field: "provider"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[id]
	if !exists {
		return nil, &domain.UnknownProviderError{Provider: string(id)}
	}

	return provider, nil
}

// List returns all registered provider ids in a stable order.
func (r *Registry) List(_ context.Context) ([]domain.ProviderID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]domain.ProviderID, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names, nil
}
