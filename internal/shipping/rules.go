// Package shipping resolves checkout shipping fees through an ordered rule
// chain. Free-shipping rules run first, then paid-rate rules, and a
// cash-on-delivery surcharge is applied on top of any paid fee.
package shipping

import (
	"context"
	"fmt"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/platform/textutil"
)

// Rule is one link of the fee chain. Evaluate returns ok=false when the rule
// does not apply to the checkout; an error skips the rule without aborting
// the chain.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error)
}

type programBenefitRule struct{}

func (programBenefitRule) Name() string { return "sale_program_benefit" }

func (programBenefitRule) Evaluate(_ context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error) {
	if !checkout.CartFreeShipping {
		return domain.ShippingResult{}, false, nil
	}
	return domain.ShippingResult{
		Fee:         0,
		Reason:      domain.ShipReasonProgramBenefit,
		Description: "Free shipping from an active sale program",
	}, true, nil
}

type loyaltyBenefitRule struct{}

func (loyaltyBenefitRule) Name() string { return "loyalty_benefit" }

func (loyaltyBenefitRule) Evaluate(_ context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error) {
	if !checkout.LoyaltyFreeShipping {
		return domain.ShippingResult{}, false, nil
	}
	return domain.ShippingResult{
		Fee:         0,
		Reason:      domain.ShipReasonLoyaltyBenefit,
		Description: "Free shipping from the customer's loyalty tier",
	}, true, nil
}

type itemFlagRule struct{}

func (itemFlagRule) Name() string { return "item_free_shipping" }

// One flagged line is enough; the flag covers the whole shipment.
func (itemFlagRule) Evaluate(_ context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error) {
	for _, item := range checkout.Items {
		if item.FreeShipping {
			return domain.ShippingResult{
				Fee:         0,
				Reason:      domain.ShipReasonItemFreeShipping,
				Description: "An item in the cart ships free",
			}, true, nil
		}
	}
	return domain.ShippingResult{}, false, nil
}

type quantityThresholdRule struct {
	threshold int
}

func (quantityThresholdRule) Name() string { return "quantity_threshold" }

func (r quantityThresholdRule) Evaluate(_ context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error) {
	if r.threshold <= 0 || checkout.TotalQuantity() < r.threshold {
		return domain.ShippingResult{}, false, nil
	}
	return domain.ShippingResult{
		Fee:         0,
		Reason:      domain.ShipReasonQuantityThreshold,
		Description: fmt.Sprintf("Free shipping for %d or more items", r.threshold),
	}, true, nil
}

type subtotalThresholdRule struct {
	threshold int64
}

func (subtotalThresholdRule) Name() string { return "subtotal_threshold" }

func (r subtotalThresholdRule) Evaluate(_ context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error) {
	if r.threshold <= 0 || checkout.Subtotal < r.threshold {
		return domain.ShippingResult{}, false, nil
	}
	return domain.ShippingResult{
		Fee:         0,
		Reason:      domain.ShipReasonSubtotalThreshold,
		Description: "Free shipping over the order subtotal threshold",
	}, true, nil
}

type regionTierRule struct {
	rates      map[string]int64
	defaultFee int64
}

func (regionTierRule) Name() string { return "region_tier" }

func (r regionTierRule) Evaluate(_ context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool, error) {
	if !checkout.UseRegionRates {
		return domain.ShippingResult{}, false, nil
	}
	fee := r.defaultFee
	if rate, ok := r.rates[textutil.Fold(checkout.City)]; ok {
		fee = rate
	}
	return domain.ShippingResult{
		Fee:         fee,
		Reason:      domain.ShipReasonRegionTier,
		Description: "Region-based delivery rate",
		City:        checkout.City,
	}, true, nil
}

type flatRateRule struct {
	fee int64
}

func (flatRateRule) Name() string { return "flat_rate" }

func (r flatRateRule) Evaluate(_ context.Context, _ domain.ShippingContext) (domain.ShippingResult, bool, error) {
	return domain.ShippingResult{
		Fee:         r.fee,
		Reason:      domain.ShipReasonFlatRate,
		Description: "Standard flat delivery rate",
	}, true, nil
}

// DefaultRules assembles the stock chain in evaluation order. Free-shipping
// rules precede paid-rate rules; the flat rate terminates the chain.
func DefaultRules(cfg Config) []Rule {
	cfg = cfg.normalized()
	return []Rule{
		programBenefitRule{},
		loyaltyBenefitRule{},
		itemFlagRule{},
		quantityThresholdRule{threshold: cfg.QuantityThreshold},
		subtotalThresholdRule{threshold: cfg.SubtotalThreshold},
		regionTierRule{rates: cfg.RegionRates, defaultFee: cfg.DefaultRegionFee},
		flatRateRule{fee: cfg.BaseFee},
	}
}
