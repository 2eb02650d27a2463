package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(ResolverDeps{
		Now: func() time.Time { return testNow },
	})
}

func openProgram(id string, benefits domain.ProgramBenefits) domain.SaleProgram {
	return domain.SaleProgram{
		ID:         id,
		Title:      "Program " + id,
		Active:     true,
		StartsAt:   testNow.Add(-time.Hour),
		EndsAt:     testNow.Add(time.Hour),
		Benefits:   benefits,
		Conditions: domain.ProgramConditions{AllProducts: true},
	}
}

func TestResolve_RegularPrice(t *testing.T) {
	r := testResolver(t)
	product := domain.Product{ID: "p1", Price: 2000}

	result := r.Resolve(context.Background(), product, nil)

	if result.Type != domain.OfferRegular {
		t.Fatalf("type = %s, want regular", result.Type)
	}
	if result.DisplayPrice != 2000 || result.OriginalPrice != 2000 || result.Discount != 0 {
		t.Fatalf("result = %+v, want undiscounted 2000", result)
	}
	if result.OnSale() {
		t.Fatal("regular price must not report on sale")
	}
}

func TestResolve_BestOfferWins(t *testing.T) {
	r := testResolver(t)

	t.Run("larger direct sale beats smaller program", func(t *testing.T) {
		// 20% off direct sale vs a 10% program.
		product := domain.Product{
			ID:         "p1",
			Price:      2000,
			SalePrice:  int64Ptr(1600),
			SaleActive: true,
		}
		programs := []domain.SaleProgram{
			openProgram("sp1", domain.ProgramBenefits{DiscountPercent: intPtr(10)}),
		}

		result := r.Resolve(context.Background(), product, programs)

		if result.Type != domain.OfferDirectSale {
			t.Fatalf("type = %s, want direct_sale", result.Type)
		}
		if result.DisplayPrice != 1600 || result.Discount != 400 {
			t.Fatalf("result = %+v, want display 1600 discount 400", result)
		}
		if result.ProgramID != "" {
			t.Fatalf("programId = %q, want empty", result.ProgramID)
		}
	})

	t.Run("larger program beats smaller direct sale", func(t *testing.T) {
		// 30% program vs a 20% direct sale.
		product := domain.Product{
			ID:         "p1",
			Price:      2000,
			SalePrice:  int64Ptr(1600),
			SaleActive: true,
		}
		programs := []domain.SaleProgram{
			openProgram("sp1", domain.ProgramBenefits{DiscountPercent: intPtr(30)}),
		}

		result := r.Resolve(context.Background(), product, programs)

		if result.Type != domain.OfferSaleProgram {
			t.Fatalf("type = %s, want sale_program", result.Type)
		}
		if result.DisplayPrice != 1400 || result.Discount != 600 || result.DiscountPercent != 30 {
			t.Fatalf("result = %+v, want display 1400 discount 600 percent 30", result)
		}
		if result.ProgramID != "sp1" {
			t.Fatalf("programId = %q, want sp1", result.ProgramID)
		}
	})

	t.Run("flash sale program tags flash_sale", func(t *testing.T) {
		product := domain.Product{ID: "p1", Price: 2000}
		program := openProgram("fs1", domain.ProgramBenefits{DiscountPercent: intPtr(15)})
		program.Type = domain.ProgramTypeFlashSale
		program.Badge = "FLASH"

		result := r.Resolve(context.Background(), product, []domain.SaleProgram{program})

		if result.Type != domain.OfferFlashSale {
			t.Fatalf("type = %s, want flash_sale", result.Type)
		}
		if result.ProgramBadge != "FLASH" {
			t.Fatalf("badge = %q, want FLASH", result.ProgramBadge)
		}
	})
}

func TestResolve_TieKeepsFirstSeen(t *testing.T) {
	r := testResolver(t)
	product := domain.Product{ID: "p1", Price: 2000}
	programs := []domain.SaleProgram{
		openProgram("sp-a", domain.ProgramBenefits{DiscountPercent: intPtr(25)}),
		openProgram("sp-b", domain.ProgramBenefits{DiscountPercent: intPtr(25)}),
	}

	result := r.Resolve(context.Background(), product, programs)
	if result.ProgramID != "sp-a" {
		t.Fatalf("programId = %q, want first-seen sp-a", result.ProgramID)
	}

	// Same snapshot, repeated resolution: the winner must be stable.
	for i := 0; i < 5; i++ {
		again := r.Resolve(context.Background(), product, programs)
		if again.ProgramID != result.ProgramID {
			t.Fatalf("run %d: programId = %q, want %q", i, again.ProgramID, result.ProgramID)
		}
	}
}

func TestResolve_ErrorIsolation(t *testing.T) {
	var logged []string
	r := NewResolver(ResolverDeps{
		Now: func() time.Time { return testNow },
		Logger: func(_ context.Context, msg string, _ map[string]any) {
			logged = append(logged, msg)
		},
	})

	product := domain.Product{ID: "p1", Price: 2000}
	broken := openProgram("sp-broken", domain.ProgramBenefits{DiscountPercent: intPtr(150)})
	good := openProgram("sp-good", domain.ProgramBenefits{DiscountPercent: intPtr(20)})

	result := r.Resolve(context.Background(), product, []domain.SaleProgram{broken, good})

	if result.ProgramID != "sp-good" {
		t.Fatalf("programId = %q, want sp-good despite broken sibling", result.ProgramID)
	}
	if result.DisplayPrice != 1600 {
		t.Fatalf("display = %d, want 1600", result.DisplayPrice)
	}
	if len(logged) != 1 || logged[0] != "pricing_program_skipped" {
		t.Fatalf("logged = %v, want one pricing_program_skipped entry", logged)
	}
}

func TestResolve_FreeShippingOnlyProgram(t *testing.T) {
	r := testResolver(t)
	product := domain.Product{ID: "p1", Price: 2000}
	shipOnly := openProgram("sp-ship", domain.ProgramBenefits{FreeShipping: true})
	shipOnly.Conditions = domain.ProgramConditions{ProductIDs: []string{"p1"}}

	t.Run("price stays regular, shipping flag carries", func(t *testing.T) {
		// Zero savings never beats the regular price, but the shipping
		// benefit still marks the product.
		result := r.Resolve(context.Background(), product, []domain.SaleProgram{shipOnly})
		if result.Type != domain.OfferRegular {
			t.Fatalf("type = %s, want regular", result.Type)
		}
		if result.DisplayPrice != 2000 {
			t.Fatalf("display = %d, want 2000", result.DisplayPrice)
		}
		if !result.FreeShipping {
			t.Fatal("freeShipping = false, want true from the eligible program")
		}
	})

	t.Run("flag survives losing the savings competition", func(t *testing.T) {
		discounting := openProgram("sp-pct", domain.ProgramBenefits{DiscountPercent: intPtr(25)})
		result := r.Resolve(context.Background(), product, []domain.SaleProgram{shipOnly, discounting})
		if result.ProgramID != "sp-pct" || result.DisplayPrice != 1500 {
			t.Fatalf("result = %+v, want sp-pct at 1500", result)
		}
		if !result.FreeShipping {
			t.Fatal("freeShipping = false, want true even though sp-pct won the price")
		}
	})

	t.Run("ineligible program grants nothing", func(t *testing.T) {
		other := domain.Product{ID: "p2", Price: 2000}
		result := r.Resolve(context.Background(), other, []domain.SaleProgram{shipOnly})
		if result.FreeShipping {
			t.Fatal("freeShipping = true, want false for an untargeted product")
		}
	})
}

func TestResolveAll(t *testing.T) {
	r := testResolver(t)
	products := []domain.Product{
		{ID: "p1", Price: 2000},
		{ID: "p2", Price: 1000, SalePrice: int64Ptr(800), SaleActive: true},
	}
	programs := []domain.SaleProgram{
		openProgram("sp1", domain.ProgramBenefits{DiscountPercent: intPtr(50)}),
	}

	results := r.ResolveAll(context.Background(), products, programs)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ProductID != "p1" || results[0].DisplayPrice != 1000 {
		t.Fatalf("results[0] = %+v, want p1 at 1000", results[0])
	}
	if results[1].ProductID != "p2" || results[1].DisplayPrice != 500 {
		t.Fatalf("results[1] = %+v, want p2 at 500 (program beats direct sale)", results[1])
	}

	if got := r.ResolveAll(context.Background(), nil, programs); got != nil {
		t.Fatalf("ResolveAll(nil) = %v, want nil", got)
	}
}
