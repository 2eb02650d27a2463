package pricing

import (
	"errors"
	"fmt"

	"github.com/shiny-beauty/api/internal/domain"
)

var (
	// ErrNoBasePrice indicates the product lacks a usable base price.
	ErrNoBasePrice = errors.New("pricing: product has no usable base price")
	// ErrInvalidBenefit indicates the program's benefit definition is out of range.
	ErrInvalidBenefit = errors.New("pricing: invalid program benefit")
	// ErrNoBenefit indicates the program defines no price-affecting benefit.
	ErrNoBenefit = errors.New("pricing: program defines no discount benefit")
)

// Quote is a concrete discount computed for one product from one source.
type Quote struct {
	FinalPrice int64
	Amount     int64
}

// ProgramQuote computes the discount a program grants the product. The base
// price is always the original price, never an already-discounted sale price,
// so program discounts do not compound with direct sales.
func ProgramQuote(program domain.SaleProgram, product domain.Product) (Quote, error) {
	base := product.BasePrice()
	if base <= 0 {
		return Quote{}, ErrNoBasePrice
	}

	benefits := program.Benefits
	switch {
	case benefits.DiscountPercent != nil:
		pct := *benefits.DiscountPercent
		if pct < 0 || pct > 100 {
			return Quote{}, fmt.Errorf("%w: percent %d out of range", ErrInvalidBenefit, pct)
		}
		amount := base * int64(pct) / 100
		final := base - amount
		if final < 0 {
			final = 0
			amount = base
		}
		return Quote{FinalPrice: final, Amount: amount}, nil

	case benefits.DiscountAmount != nil:
		amount := *benefits.DiscountAmount
		if amount < 0 {
			return Quote{}, fmt.Errorf("%w: negative amount %d", ErrInvalidBenefit, amount)
		}
		if amount > base {
			amount = base
		}
		return Quote{FinalPrice: base - amount, Amount: amount}, nil

	case benefits.FreeShipping:
		// A shipping-only benefit leaves the price untouched.
		return Quote{FinalPrice: base, Amount: 0}, nil

	default:
		return Quote{}, ErrNoBenefit
	}
}

// DirectSaleQuote computes the discount from the product's own sale price.
// The second return is false when the product has no active direct sale.
func DirectSaleQuote(product domain.Product) (Quote, bool) {
	if !product.HasDirectSale() {
		return Quote{}, false
	}
	base := product.BasePrice()
	if base <= 0 {
		return Quote{}, false
	}
	sale := *product.SalePrice
	if sale < 0 {
		sale = 0
	}
	return Quote{FinalPrice: sale, Amount: base - sale}, true
}
