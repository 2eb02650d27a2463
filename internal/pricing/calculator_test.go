package pricing

import (
	"errors"
	"testing"

	"github.com/shiny-beauty/api/internal/domain"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestProgramQuote_Percent(t *testing.T) {
	product := domain.Product{ID: "p1", Price: 2000}

	cases := []struct {
		name      string
		percent   int
		wantFinal int64
		wantSave  int64
	}{
		{"thirty percent", 30, 1400, 600},
		{"zero percent", 0, 2000, 0},
		{"full discount", 100, 0, 2000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountPercent: intPtr(tc.percent)}}
			quote, err := ProgramQuote(program, product)
			if err != nil {
				t.Fatalf("ProgramQuote() error = %v", err)
			}
			if quote.FinalPrice != tc.wantFinal || quote.Amount != tc.wantSave {
				t.Fatalf("quote = %+v, want final %d savings %d", quote, tc.wantFinal, tc.wantSave)
			}
		})
	}

	t.Run("percent out of range", func(t *testing.T) {
		for _, pct := range []int{-1, 101} {
			program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountPercent: intPtr(pct)}}
			if _, err := ProgramQuote(program, product); !errors.Is(err, ErrInvalidBenefit) {
				t.Fatalf("percent %d: error = %v, want ErrInvalidBenefit", pct, err)
			}
		}
	})
}

func TestProgramQuote_FixedAmount(t *testing.T) {
	product := domain.Product{ID: "p1", Price: 2000}

	t.Run("plain amount", func(t *testing.T) {
		program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountAmount: int64Ptr(500)}}
		quote, err := ProgramQuote(program, product)
		if err != nil {
			t.Fatalf("ProgramQuote() error = %v", err)
		}
		if quote.FinalPrice != 1500 || quote.Amount != 500 {
			t.Fatalf("quote = %+v, want final 1500 savings 500", quote)
		}
	})

	t.Run("amount clamped to base price", func(t *testing.T) {
		program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountAmount: int64Ptr(9999)}}
		quote, err := ProgramQuote(program, product)
		if err != nil {
			t.Fatalf("ProgramQuote() error = %v", err)
		}
		if quote.FinalPrice != 0 || quote.Amount != 2000 {
			t.Fatalf("quote = %+v, want final 0 savings 2000", quote)
		}
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountAmount: int64Ptr(-1)}}
		if _, err := ProgramQuote(program, product); !errors.Is(err, ErrInvalidBenefit) {
			t.Fatalf("error = %v, want ErrInvalidBenefit", err)
		}
	})
}

func TestProgramQuote_Edges(t *testing.T) {
	t.Run("free shipping only leaves price untouched", func(t *testing.T) {
		program := domain.SaleProgram{Benefits: domain.ProgramBenefits{FreeShipping: true}}
		quote, err := ProgramQuote(program, domain.Product{ID: "p1", Price: 2000})
		if err != nil {
			t.Fatalf("ProgramQuote() error = %v", err)
		}
		if quote.FinalPrice != 2000 || quote.Amount != 0 {
			t.Fatalf("quote = %+v, want final 2000 savings 0", quote)
		}
	})

	t.Run("no benefit at all", func(t *testing.T) {
		if _, err := ProgramQuote(domain.SaleProgram{}, domain.Product{ID: "p1", Price: 2000}); !errors.Is(err, ErrNoBenefit) {
			t.Fatalf("error = %v, want ErrNoBenefit", err)
		}
	})

	t.Run("no usable base price", func(t *testing.T) {
		program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountPercent: intPtr(10)}}
		if _, err := ProgramQuote(program, domain.Product{ID: "p1", Price: 0}); !errors.Is(err, ErrNoBasePrice) {
			t.Fatalf("error = %v, want ErrNoBasePrice", err)
		}
	})

	t.Run("percent applies to original price not sale price", func(t *testing.T) {
		product := domain.Product{
			ID:            "p1",
			Price:         1500,
			OriginalPrice: int64Ptr(2000),
			SalePrice:     int64Ptr(1500),
			SaleActive:    true,
		}
		program := domain.SaleProgram{Benefits: domain.ProgramBenefits{DiscountPercent: intPtr(10)}}
		quote, err := ProgramQuote(program, product)
		if err != nil {
			t.Fatalf("ProgramQuote() error = %v", err)
		}
		if quote.FinalPrice != 1800 || quote.Amount != 200 {
			t.Fatalf("quote = %+v, want final 1800 savings 200 (no compounding)", quote)
		}
	})
}

func TestDirectSaleQuote(t *testing.T) {
	t.Run("active sale", func(t *testing.T) {
		product := domain.Product{
			ID:         "p1",
			Price:      2000,
			SalePrice:  int64Ptr(1500),
			SaleActive: true,
		}
		quote, ok := DirectSaleQuote(product)
		if !ok {
			t.Fatal("expected a direct sale quote")
		}
		if quote.FinalPrice != 1500 || quote.Amount != 500 {
			t.Fatalf("quote = %+v, want final 1500 savings 500", quote)
		}
	})

	t.Run("inactive sale flag", func(t *testing.T) {
		product := domain.Product{ID: "p1", Price: 2000, SalePrice: int64Ptr(1500)}
		if _, ok := DirectSaleQuote(product); ok {
			t.Fatal("inactive sale must not quote")
		}
	})

	t.Run("sale price at or above base", func(t *testing.T) {
		product := domain.Product{ID: "p1", Price: 2000, SalePrice: int64Ptr(2000), SaleActive: true}
		if _, ok := DirectSaleQuote(product); ok {
			t.Fatal("non-discounting sale must not quote")
		}
	})
}
