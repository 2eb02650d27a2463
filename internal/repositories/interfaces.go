package repositories

import (
	"context"

	"github.com/shiny-beauty/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Programs() ProgramRepository
	Loyalty() LoyaltyRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductListFilter narrows and pages product listings.
type ProductListFilter struct {
	CategoryID string
	Brand      string
	Search     string
	PageSize   int
	PageToken  string
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// ProgramListFilter narrows and pages program listings.
type ProgramListFilter struct {
	Type      domain.ProgramType
	PageSize  int
	PageToken string
}

// ProgramRepository persists sale programs. Listings are ordered by start
// date ascending, then id ascending, so the order every consumer iterates
// programs in is stable and documented.
type ProgramRepository interface {
	Insert(ctx context.Context, program domain.SaleProgram) error
	Update(ctx context.Context, program domain.SaleProgram) error
	Delete(ctx context.Context, programID string) error
	FindByID(ctx context.Context, programID string) (domain.SaleProgram, error)
	List(ctx context.Context, filter ProgramListFilter) (domain.CursorPage[domain.SaleProgram], error)
	ListEnabled(ctx context.Context) ([]domain.SaleProgram, error)
}

// LoyaltyRepository reads loyalty tier definitions and user tier membership.
type LoyaltyRepository interface {
	FindTier(ctx context.Context, tierID string) (domain.LoyaltyTier, error)
	TierForUser(ctx context.Context, userID string) (domain.LoyaltyTier, error)
}

// HealthRepository aggregates dependency health probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
