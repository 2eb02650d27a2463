package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/pricing"
	"github.com/shiny-beauty/api/internal/repositories"
	"github.com/shiny-beauty/api/internal/shipping"
)

var (
	// ErrShippingInvalidInput indicates the quote request is malformed.
	ErrShippingInvalidInput = errors.New("shipping quote: invalid input")
	// ErrShippingProductNotFound indicates a requested cart line references a missing product.
	ErrShippingProductNotFound = errors.New("shipping quote: product not found")
)

// ShippingQuoteServiceDeps bundles constructor inputs for the quote service.
type ShippingQuoteServiceDeps struct {
	Products       repositories.ProductRepository
	Loyalty        repositories.LoyaltyRepository
	Programs       ActiveProgramSource
	Resolver       *pricing.Resolver
	Calculator     *shipping.Calculator
	UseRegionRates bool
	Clock          func() time.Time
	Logger         func(context.Context, string, map[string]any)
}

type shippingQuoteService struct {
	products       repositories.ProductRepository
	loyalty        repositories.LoyaltyRepository
	programs       ActiveProgramSource
	resolver       *pricing.Resolver
	calculator     *shipping.Calculator
	useRegionRates bool
	clock          func() time.Time
	logger         func(context.Context, string, map[string]any)
}

// NewShippingQuoteService wires a ShippingQuoteService.
func NewShippingQuoteService(deps ShippingQuoteServiceDeps) (ShippingQuoteService, error) {
	if deps.Products == nil {
		return nil, errors.New("shipping quote service: product repository is required")
	}
	if deps.Programs == nil {
		return nil, errors.New("shipping quote service: program source is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("shipping quote service: pricing resolver is required")
	}
	if deps.Calculator == nil {
		return nil, errors.New("shipping quote service: calculator is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &shippingQuoteService{
		products:       deps.Products,
		loyalty:        deps.Loyalty,
		programs:       deps.Programs,
		resolver:       deps.Resolver,
		calculator:     deps.Calculator,
		useRegionRates: deps.UseRegionRates,
		clock:          func() time.Time { return clock().UTC() },
		logger:         logger,
	}, nil
}

// Quote prices the requested cart at resolved discount prices, assembles the
// checkout context, and runs the fee chain over it.
func (s *shippingQuoteService) Quote(ctx context.Context, cmd ShippingQuoteCommand) (ShippingQuote, error) {
	if s == nil || s.products == nil {
		return ShippingQuote{}, errors.New("shipping quote service not initialised")
	}
	if len(cmd.Items) == 0 {
		return ShippingQuote{}, fmt.Errorf("%w: at least one item is required", ErrShippingInvalidInput)
	}
	for _, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return ShippingQuote{}, fmt.Errorf("%w: item product id is required", ErrShippingInvalidInput)
		}
		if item.Quantity <= 0 {
			return ShippingQuote{}, fmt.Errorf("%w: item quantity must be positive", ErrShippingInvalidInput)
		}
	}

	programs, err := s.programs.ActivePrograms(ctx)
	if err != nil {
		// The fee chain still works without programs; the cart just loses
		// program-granted free shipping.
		s.logger(ctx, "shipping_program_snapshot_error", map[string]any{"error": err.Error()})
		programs = nil
	}

	checkout := domain.ShippingContext{
		City:           strings.TrimSpace(cmd.City),
		PaymentMethod:  cmd.PaymentMethod,
		UseRegionRates: s.useRegionRates,
	}

	for _, line := range cmd.Items {
		product, err := s.products.FindByID(ctx, strings.TrimSpace(line.ProductID))
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				return ShippingQuote{}, fmt.Errorf("%w: %s", ErrShippingProductNotFound, line.ProductID)
			}
			return ShippingQuote{}, err
		}

		result := s.resolver.Resolve(ctx, product, programs)
		item := domain.ShippingItem{
			ProductID:    product.ID,
			Quantity:     line.Quantity,
			UnitPrice:    result.DisplayPrice,
			FreeShipping: product.FreeShipping || result.FreeShipping,
		}
		checkout.Items = append(checkout.Items, item)
		checkout.Subtotal += item.UnitPrice * int64(item.Quantity)
	}

	checkout.CartFreeShipping = cartFreeShipping(programs, s.clock())
	checkout.LoyaltyFreeShipping = s.loyaltyFreeShipping(ctx, cmd.UserID)

	result := s.calculator.Quote(ctx, checkout)
	return ShippingQuote{
		Result:   result,
		Subtotal: checkout.Subtotal,
		Items:    checkout.Items,
	}, nil
}

// cartFreeShipping reports whether an active storewide program grants the
// whole cart free shipping. Targeted programs grant it per item instead,
// through the resolved pricing of each line.
func cartFreeShipping(programs []domain.SaleProgram, now time.Time) bool {
	for _, program := range programs {
		if !program.ActiveAt(now) {
			continue
		}
		if program.Benefits.FreeShipping && program.Conditions.AllProducts {
			return true
		}
	}
	return false
}

func (s *shippingQuoteService) loyaltyFreeShipping(ctx context.Context, userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" || s.loyalty == nil {
		return false
	}
	tier, err := s.loyalty.TierForUser(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			s.logger(ctx, "shipping_loyalty_lookup_error", map[string]any{
				"userId": userID,
				"error":  err.Error(),
			})
		}
		return false
	}
	return tier.Benefits.FreeShipping
}
