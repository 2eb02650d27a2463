package domain

import (
	"strings"
	"time"
)

// CategoryRef identifies a catalog category attached to a product.
type CategoryRef struct {
	ID   string
	Name string
	Slug string
}

// Product is the catalog entity priced by the discount resolution engine.
// Monetary fields are minor units of the store currency.
type Product struct {
	ID            string
	Name          string
	Slug          string
	Brand         string
	Description   string
	Price         int64
	OriginalPrice *int64
	SalePrice     *int64
	SaleActive    bool
	SaleProgramID string
	FreeShipping  bool
	Categories    []CategoryRef
	CountInStock  int
	Images        []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BasePrice returns the price program discounts apply to. Discounts never
// compound: the original price wins over an already-discounted price.
func (p Product) BasePrice() int64 {
	if p.OriginalPrice != nil && *p.OriginalPrice > 0 {
		return *p.OriginalPrice
	}
	return p.Price
}

// HasDirectSale reports whether the product carries its own active sale price.
func (p Product) HasDirectSale() bool {
	return p.SaleActive && p.SalePrice != nil && *p.SalePrice >= 0 && *p.SalePrice < p.BasePrice()
}

// CategoryIDs collects the ids of the product's categories.
func (p Product) CategoryIDs() []string {
	if len(p.Categories) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		if id := strings.TrimSpace(c.ID); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ProgramType enumerates the supported promotional campaign flavours.
type ProgramType string

const (
	ProgramTypeFlashSale      ProgramType = "flash_sale"
	ProgramTypeSeasonal       ProgramType = "seasonal"
	ProgramTypeClearance      ProgramType = "clearance"
	ProgramTypeBundle         ProgramType = "bundle"
	ProgramTypePercentageSale ProgramType = "percentage_sale"
)

// KnownProgramType reports whether the value is one of the supported types.
func KnownProgramType(t ProgramType) bool {
	switch t {
	case ProgramTypeFlashSale, ProgramTypeSeasonal, ProgramTypeClearance, ProgramTypeBundle, ProgramTypePercentageSale:
		return true
	default:
		return false
	}
}

// ProgramBenefits describes what an eligible product or cart receives.
type ProgramBenefits struct {
	DiscountPercent *int
	DiscountAmount  *int64
	FreeShipping    bool
}

// ProgramConditions captures program targeting. AllProducts is an explicit
// opt-in: a program with no targeting lists and AllProducts false matches
// nothing.
type ProgramConditions struct {
	AllProducts bool
	ProductIDs  []string
	CategoryIDs []string
	Brands      []string
}

// HasTargeting reports whether any targeting list is populated.
func (c ProgramConditions) HasTargeting() bool {
	return len(c.ProductIDs) > 0 || len(c.CategoryIDs) > 0 || len(c.Brands) > 0
}

// SaleProgram is an admin-configured promotional campaign with a time window,
// targeting rules, and a benefit definition.
type SaleProgram struct {
	ID          string
	Title       string
	Description string
	Badge       string
	Type        ProgramType
	Benefits    ProgramBenefits
	Conditions  ProgramConditions
	StartsAt    time.Time
	EndsAt      time.Time
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveAt reports whether the program is enabled and its window covers now.
func (p SaleProgram) ActiveAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if !p.StartsAt.IsZero() && now.Before(p.StartsAt) {
		return false
	}
	if !p.EndsAt.IsZero() && now.After(p.EndsAt) {
		return false
	}
	return true
}

// LoyaltyBenefits lists perks granted by a loyalty tier.
type LoyaltyBenefits struct {
	FreeShipping    bool
	DiscountPercent int
}

// LoyaltyTier is the membership level attached to a user account.
type LoyaltyTier struct {
	ID       string
	Name     string
	Benefits LoyaltyBenefits
}
