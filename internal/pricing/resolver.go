package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
)

// Resolver selects the best offer per product across all discount sources.
// It is stateless apart from the injected clock and logger and is safe for
// concurrent use.
type Resolver struct {
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// ResolverDeps configures a Resolver. Both fields are optional.
type ResolverDeps struct {
	Now    func() time.Time
	Logger func(context.Context, string, map[string]any)
}

// NewResolver constructs a Resolver with sane defaults.
func NewResolver(deps ResolverDeps) *Resolver {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Resolver{
		now:    func() time.Time { return now().UTC() },
		logger: logger,
	}
}

// Resolve picks the single best offer for the product across its direct sale
// and every eligible program, by highest absolute savings. Ties keep the
// first-seen candidate: a later source must strictly beat the current best.
// The programs slice must already carry the repository's documented ordering
// (start date ascending, then id ascending), which makes "first seen"
// deterministic.
//
// Resolve never fails: any per-program error skips that program, and any
// unexpected panic degrades the product to its regular price.
func (r *Resolver) Resolve(ctx context.Context, product domain.Product, programs []domain.SaleProgram) (result domain.PricingResult) {
	result = regularResult(product)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger(ctx, "pricing_resolve_panic", map[string]any{
				"productId": product.ID,
				"panic":     fmt.Sprint(rec),
			})
			result = regularResult(product)
		}
	}()

	now := r.now()

	if quote, ok := DirectSaleQuote(product); ok && quote.Amount > result.Discount {
		result = resultFromQuote(product, quote, domain.OfferDirectSale)
	}

	// Free shipping is not part of the savings competition: any eligible
	// program granting it marks the product, even when a different offer
	// wins the price.
	freeShipping := false

	for _, program := range programs {
		if !Eligible(program, product, now) {
			continue
		}
		if program.Benefits.FreeShipping {
			freeShipping = true
		}
		quote, err := ProgramQuote(program, product)
		if err != nil {
			r.logger(ctx, "pricing_program_skipped", map[string]any{
				"productId": product.ID,
				"programId": program.ID,
				"error":     err.Error(),
			})
			continue
		}
		if quote.Amount <= result.Discount {
			continue
		}
		result = resultFromQuote(product, quote, offerTypeFor(program))
		result.ProgramID = program.ID
		result.ProgramTitle = program.Title
		result.ProgramBadge = program.Badge
	}

	result.FreeShipping = freeShipping
	return result
}

// ResolveAll prices every product against the shared program snapshot.
func (r *Resolver) ResolveAll(ctx context.Context, products []domain.Product, programs []domain.SaleProgram) []domain.PricingResult {
	if len(products) == 0 {
		return nil
	}
	results := make([]domain.PricingResult, 0, len(products))
	for _, product := range products {
		results = append(results, r.Resolve(ctx, product, programs))
	}
	return results
}

func regularResult(product domain.Product) domain.PricingResult {
	price := product.Price
	if price < 0 {
		price = 0
	}
	return domain.PricingResult{
		ProductID:     product.ID,
		DisplayPrice:  price,
		OriginalPrice: price,
		Type:          domain.OfferRegular,
	}
}

func resultFromQuote(product domain.Product, quote Quote, offer domain.OfferType) domain.PricingResult {
	base := product.BasePrice()
	discount := quote.Amount
	if discount < 0 {
		discount = 0
	}
	display := quote.FinalPrice
	if display < 0 {
		display = 0
	}
	if display > base {
		display = base
	}
	return domain.PricingResult{
		ProductID:       product.ID,
		DisplayPrice:    display,
		OriginalPrice:   base,
		Discount:        discount,
		DiscountPercent: percentOf(discount, base),
		Savings:         discount,
		Type:            offer,
	}
}

func offerTypeFor(program domain.SaleProgram) domain.OfferType {
	if program.Type == domain.ProgramTypeFlashSale {
		return domain.OfferFlashSale
	}
	return domain.OfferSaleProgram
}

func percentOf(discount, base int64) int {
	if base <= 0 || discount <= 0 {
		return 0
	}
	return int(math.Round(float64(discount) / float64(base) * 100))
}
