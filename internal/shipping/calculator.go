package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiny-beauty/api/internal/domain"
)

// Calculator walks the rule chain and applies the cash-on-delivery surcharge.
// It never fails a checkout: a misbehaving rule is logged and skipped, and an
// empty chain still yields the flat rate.
type Calculator struct {
	rules        []Rule
	codSurcharge int64
	baseFee      int64
	logger       func(context.Context, string, map[string]any)
}

// CalculatorDeps configures a Calculator.
type CalculatorDeps struct {
	// Rules overrides the default chain. Leave nil to use DefaultRules(Config).
	Rules  []Rule
	Config Config
	Logger func(context.Context, string, map[string]any)
}

// NewCalculator constructs a Calculator from the fee schedule.
func NewCalculator(deps CalculatorDeps) (*Calculator, error) {
	cfg := deps.Config.normalized()
	rules := deps.Rules
	if rules == nil {
		rules = DefaultRules(cfg)
	}
	if len(rules) == 0 {
		return nil, errors.New("shipping calculator: rule chain is empty")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Calculator{
		rules:        rules,
		codSurcharge: cfg.CODSurcharge,
		baseFee:      cfg.BaseFee,
		logger:       logger,
	}, nil
}

// Quote resolves the shipping fee for one checkout. The first rule that
// claims the checkout decides the base fee; cash on delivery then adds its
// surcharge to any paid fee. Free shipments never pay the surcharge.
func (c *Calculator) Quote(ctx context.Context, checkout domain.ShippingContext) domain.ShippingResult {
	result, decided := c.evaluate(ctx, checkout)
	if !decided {
		// Every rule declined or failed. Fall back to the flat rate so the
		// checkout still gets a fee.
		result = domain.ShippingResult{
			Fee:         c.baseFee,
			Reason:      domain.ShipReasonFlatRate,
			Description: "Standard flat delivery rate",
		}
	}

	if result.Fee < 0 {
		result.Fee = 0
	}
	if result.City == "" {
		result.City = checkout.City
	}

	if result.Fee > 0 && checkout.PaymentMethod == domain.PaymentCOD && c.codSurcharge > 0 {
		base := result.Fee
		result.Breakdown = map[string]int64{
			"base":         base,
			"codSurcharge": c.codSurcharge,
		}
		result.Fee = base + c.codSurcharge
		result.Reason = domain.ShipReasonCODSurcharge
		result.Description = "Cash on delivery surcharge added to the delivery rate"
	}

	return result
}

func (c *Calculator) evaluate(ctx context.Context, checkout domain.ShippingContext) (domain.ShippingResult, bool) {
	for _, rule := range c.rules {
		result, ok, err := c.evaluateRule(ctx, rule, checkout)
		if err != nil {
			c.logger(ctx, "shipping_rule_skipped", map[string]any{
				"rule":  rule.Name(),
				"error": err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}
		result.Rule = rule.Name()
		return result, true
	}
	return domain.ShippingResult{}, false
}

func (c *Calculator) evaluateRule(ctx context.Context, rule Rule, checkout domain.ShippingContext) (result domain.ShippingResult, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = domain.ShippingResult{}
			ok = false
			err = fmt.Errorf("rule panicked: %v", rec)
		}
	}()
	return rule.Evaluate(ctx, checkout)
}
