package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/shiny-beauty/api/internal/platform/firestore"
	"github.com/shiny-beauty/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider
	products *ProductRepository
	programs *ProgramRepository
	loyalty  *LoyaltyRepository
	health   repositories.HealthRepository
}

// RegistryOption customises Registry construction.
type RegistryOption func(*Registry)

// WithHealthRepository attaches the dependency health repository exposed by
// Registry.Health. The probes themselves are assembled by the caller, which
// knows which clients exist.
func WithHealthRepository(health repositories.HealthRepository) RegistryOption {
	return func(r *Registry) {
		r.health = health
	}
}

// NewRegistry wires the Firestore repositories over a shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}

	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	programs, err := NewProgramRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}
	loyalty, err := NewLoyaltyRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}

	registry := &Registry{
		provider: provider,
		products: products,
		programs: programs,
		loyalty:  loyalty,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	return registry, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Products returns the catalog product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Programs returns the sale program repository.
func (r *Registry) Programs() repositories.ProgramRepository { return r.programs }

// Loyalty returns the loyalty tier repository.
func (r *Registry) Loyalty() repositories.LoyaltyRepository { return r.loyalty }

// Health returns the dependency health repository, or nil when none was wired.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
