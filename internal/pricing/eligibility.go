// Package pricing implements the discount resolution engine: deciding which
// promotional programs apply to a product, computing concrete discounts, and
// selecting the single best offer per product.
package pricing

import (
	"strings"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/platform/textutil"
)

// Eligible reports whether the program may discount the product at the given
// instant. Targeting rules are checked in precedence order; the first match
// wins:
//
//  1. explicit per-product assignment (product.SaleProgramID),
//  2. the program's applicable-product list,
//  3. category intersection,
//  4. brand match (case- and diacritic-insensitive),
//  5. the explicit all-products flag.
//
// A program with no targeting and no all-products flag matches nothing.
func Eligible(program domain.SaleProgram, product domain.Product, now time.Time) bool {
	if !program.ActiveAt(now) {
		return false
	}

	if programID := strings.TrimSpace(program.ID); programID != "" {
		if strings.TrimSpace(product.SaleProgramID) == programID {
			return true
		}
	}

	if matchesProductList(program.Conditions.ProductIDs, product.ID) {
		return true
	}
	if intersects(program.Conditions.CategoryIDs, product.CategoryIDs()) {
		return true
	}
	if matchesBrand(program.Conditions.Brands, product.Brand) {
		return true
	}

	return program.Conditions.AllProducts
}

func matchesProductList(ids []string, productID string) bool {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == productID {
			return true
		}
	}
	return false
}

func intersects(programCategories []string, productCategories []string) bool {
	if len(programCategories) == 0 || len(productCategories) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(programCategories))
	for _, id := range programCategories {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			seen[trimmed] = struct{}{}
		}
	}
	for _, id := range productCategories {
		if _, ok := seen[strings.TrimSpace(id)]; ok {
			return true
		}
	}
	return false
}

func matchesBrand(brands []string, brand string) bool {
	folded := textutil.Fold(brand)
	if folded == "" {
		return false
	}
	for _, candidate := range brands {
		if textutil.Fold(candidate) == folded {
			return true
		}
	}
	return false
}
