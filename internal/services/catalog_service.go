package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/pricing"
	"github.com/shiny-beauty/api/internal/repositories"
)

var (
	// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogInvalidInput indicates the caller supplied invalid query data.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogProductNotFound indicates the requested product does not exist.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Programs ActiveProgramSource
	Resolver *pricing.Resolver
	Logger   func(context.Context, string, map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	programs ActiveProgramSource
	resolver *pricing.Resolver
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	if deps.Programs == nil {
		return nil, errors.New("catalog service: program source is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("catalog service: pricing resolver is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		products: deps.Products,
		programs: deps.Programs,
		resolver: deps.Resolver,
		logger:   logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[PricedProduct], error) {
	if s == nil || s.products == nil {
		return domain.CursorPage[PricedProduct]{}, ErrCatalogRepositoryMissing
	}

	page, err := s.products.List(ctx, repositories.ProductListFilter{
		CategoryID: strings.TrimSpace(filter.CategoryID),
		Brand:      strings.TrimSpace(filter.Brand),
		Search:     strings.TrimSpace(filter.Search),
		PageSize:   filter.PageSize,
		PageToken:  strings.TrimSpace(filter.PageToken),
	})
	if err != nil {
		return domain.CursorPage[PricedProduct]{}, translateCatalogError(err)
	}

	programs := s.activePrograms(ctx)
	items := make([]PricedProduct, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, PricedProduct{
			Product: product,
			Pricing: s.resolver.Resolve(ctx, product, programs),
		})
	}
	return domain.CursorPage[PricedProduct]{
		Items:         items,
		NextPageToken: page.NextPageToken,
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (PricedProduct, error) {
	if s == nil || s.products == nil {
		return PricedProduct{}, ErrCatalogRepositoryMissing
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return PricedProduct{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return PricedProduct{}, translateCatalogError(err)
	}
	return s.price(ctx, product), nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (PricedProduct, error) {
	if s == nil || s.products == nil {
		return PricedProduct{}, ErrCatalogRepositoryMissing
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return PricedProduct{}, fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return PricedProduct{}, translateCatalogError(err)
	}
	return s.price(ctx, product), nil
}

func (s *catalogService) price(ctx context.Context, product domain.Product) PricedProduct {
	return PricedProduct{
		Product: product,
		Pricing: s.resolver.Resolve(ctx, product, s.activePrograms(ctx)),
	}
}

// activePrograms degrades to an empty snapshot when the program source fails.
// Catalog reads must not break because the promotion backend is down.
func (s *catalogService) activePrograms(ctx context.Context) []domain.SaleProgram {
	programs, err := s.programs.ActivePrograms(ctx)
	if err != nil {
		s.logger(ctx, "catalog_program_snapshot_error", map[string]any{"error": err.Error()})
		return nil
	}
	return programs
}

func translateCatalogError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrCatalogProductNotFound
	}
	return err
}
