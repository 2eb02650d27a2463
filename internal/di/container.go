package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shiny-beauty/api/internal/platform/config"
	"github.com/shiny-beauty/api/internal/pricing"
	"github.com/shiny-beauty/api/internal/repositories"
	"github.com/shiny-beauty/api/internal/services"
	"github.com/shiny-beauty/api/internal/shipping"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog        services.CatalogService
	Programs       services.ProgramService
	ShippingQuotes services.ShippingQuoteService
	System         services.SystemService
}

// Deps carries the externally constructed collaborators the container cannot
// build itself: clients owned by main, and the build metadata.
type Deps struct {
	Registry  repositories.Registry
	Cache     services.SnapshotCache
	Publisher services.ProgramEventPublisher
	Logger    func(context.Context, string, map[string]any)
	Build     services.BuildInfo
}

// Container wires repositories, pricing engine, and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Resolver     *pricing.Resolver
	Annotator    *pricing.Annotator
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// Firestore-backed repositories, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, deps Deps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	resolver := pricing.NewResolver(pricing.ResolverDeps{
		Now:    time.Now,
		Logger: logger,
	})
	annotator, err := pricing.NewAnnotator(pricing.AnnotatorDeps{
		Resolver: resolver,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build pricing annotator: %w", err)
	}

	svc, err := buildServices(ctx, cfg, deps, resolver, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Resolver:     resolver,
		Annotator:    annotator,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, cfg config.Config, deps Deps, resolver *pricing.Resolver, logger func(context.Context, string, map[string]any)) (Services, error) {
	var svc Services
	reg := deps.Registry

	if programsRepo := reg.Programs(); programsRepo != nil {
		programSvc, err := services.NewProgramService(services.ProgramServiceDeps{
			Programs:  programsRepo,
			Cache:     deps.Cache,
			Publisher: deps.Publisher,
			Clock:     time.Now,
			Logger:    logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build program service: %w", err)
		}
		svc.Programs = programSvc
	}

	if productsRepo := reg.Products(); productsRepo != nil && svc.Programs != nil {
		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Products: productsRepo,
			Programs: svc.Programs,
			Resolver: resolver,
			Logger:   logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc

		calculator, err := shipping.NewCalculator(shipping.CalculatorDeps{
			Config: shipping.Config{
				BaseFee:           cfg.Shipping.BaseFee,
				CODSurcharge:      cfg.Shipping.CODSurcharge,
				SubtotalThreshold: cfg.Shipping.SubtotalThreshold,
				QuantityThreshold: cfg.Shipping.QuantityThreshold,
				DefaultRegionFee:  cfg.Shipping.DefaultRegionFee,
				RegionRates:       cfg.Shipping.RegionRates,
			},
			Logger: logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build shipping calculator: %w", err)
		}

		shippingSvc, err := services.NewShippingQuoteService(services.ShippingQuoteServiceDeps{
			Products:       productsRepo,
			Loyalty:        reg.Loyalty(),
			Programs:       svc.Programs,
			Resolver:       resolver,
			Calculator:     calculator,
			UseRegionRates: cfg.Features.EnableRegionRates,
			Clock:          time.Now,
			Logger:         logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build shipping quote service: %w", err)
		}
		svc.ShippingQuotes = shippingSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            time.Now,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
