package pricing

import (
	"testing"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
)

func activeWindow(now time.Time) (time.Time, time.Time) {
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func TestEligible_Window(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	product := domain.Product{ID: "p1", Price: 1000}

	cases := []struct {
		name    string
		program domain.SaleProgram
		want    bool
	}{
		{
			name: "inactive flag",
			program: domain.SaleProgram{
				ID:         "sp1",
				Active:     false,
				StartsAt:   now.Add(-time.Hour),
				EndsAt:     now.Add(time.Hour),
				Conditions: domain.ProgramConditions{AllProducts: true},
			},
			want: false,
		},
		{
			name: "not started",
			program: domain.SaleProgram{
				ID:         "sp2",
				Active:     true,
				StartsAt:   now.Add(time.Minute),
				EndsAt:     now.Add(time.Hour),
				Conditions: domain.ProgramConditions{AllProducts: true},
			},
			want: false,
		},
		{
			name: "expired",
			program: domain.SaleProgram{
				ID:         "sp3",
				Active:     true,
				StartsAt:   now.Add(-2 * time.Hour),
				EndsAt:     now.Add(-time.Minute),
				Conditions: domain.ProgramConditions{AllProducts: true},
			},
			want: false,
		},
		{
			name: "inside window",
			program: domain.SaleProgram{
				ID:         "sp4",
				Active:     true,
				StartsAt:   now.Add(-time.Hour),
				EndsAt:     now.Add(time.Hour),
				Conditions: domain.ProgramConditions{AllProducts: true},
			},
			want: true,
		},
		{
			name: "open-ended window",
			program: domain.SaleProgram{
				ID:         "sp5",
				Active:     true,
				Conditions: domain.ProgramConditions{AllProducts: true},
			},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Eligible(tc.program, product, now); got != tc.want {
				t.Fatalf("Eligible() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEligible_Targeting(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startsAt, endsAt := activeWindow(now)

	program := func(conditions domain.ProgramConditions) domain.SaleProgram {
		return domain.SaleProgram{
			ID:         "sp-target",
			Active:     true,
			StartsAt:   startsAt,
			EndsAt:     endsAt,
			Conditions: conditions,
		}
	}

	t.Run("explicit product assignment", func(t *testing.T) {
		product := domain.Product{ID: "p1", Price: 1000, SaleProgramID: "sp-target"}
		if !Eligible(program(domain.ProgramConditions{}), product, now) {
			t.Fatal("expected assigned product to be eligible")
		}
	})

	t.Run("product list", func(t *testing.T) {
		p := program(domain.ProgramConditions{ProductIDs: []string{"p1", "p2"}})
		if !Eligible(p, domain.Product{ID: "p2", Price: 1000}, now) {
			t.Fatal("expected listed product to be eligible")
		}
		if Eligible(p, domain.Product{ID: "p3", Price: 1000}, now) {
			t.Fatal("expected unlisted product to be ineligible")
		}
	})

	t.Run("category intersection", func(t *testing.T) {
		p := program(domain.ProgramConditions{CategoryIDs: []string{"skincare"}})
		withCategory := domain.Product{
			ID:         "p1",
			Price:      1000,
			Categories: []domain.CategoryRef{{ID: "makeup"}, {ID: "skincare"}},
		}
		without := domain.Product{
			ID:         "p2",
			Price:      1000,
			Categories: []domain.CategoryRef{{ID: "makeup"}},
		}
		if !Eligible(p, withCategory, now) {
			t.Fatal("expected category match")
		}
		if Eligible(p, without, now) {
			t.Fatal("expected no category match")
		}
	})

	t.Run("brand match ignores case and diacritics", func(t *testing.T) {
		p := program(domain.ProgramConditions{Brands: []string{"L'Oréal"}})
		if !Eligible(p, domain.Product{ID: "p1", Price: 1000, Brand: "l'oreal"}, now) {
			t.Fatal("expected folded brand match")
		}
		if Eligible(p, domain.Product{ID: "p2", Price: 1000, Brand: "Maybelline"}, now) {
			t.Fatal("expected different brand to be ineligible")
		}
	})

	t.Run("no targeting and no all-products flag matches nothing", func(t *testing.T) {
		if Eligible(program(domain.ProgramConditions{}), domain.Product{ID: "p1", Price: 1000}, now) {
			t.Fatal("untargeted program must not match")
		}
	})

	t.Run("all-products flag matches everything", func(t *testing.T) {
		if !Eligible(program(domain.ProgramConditions{AllProducts: true}), domain.Product{ID: "p1", Price: 1000}, now) {
			t.Fatal("expected global program to match")
		}
	})

	t.Run("targeting lists do not become global on miss", func(t *testing.T) {
		p := program(domain.ProgramConditions{Brands: []string{"Innisfree"}})
		if Eligible(p, domain.Product{ID: "p1", Price: 1000, Brand: "Cosrx"}, now) {
			t.Fatal("targeted program must not fall through to global")
		}
	})
}
