package services

import (
	"context"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
)

// PricedProduct pairs a catalog product with its resolved pricing.
type PricedProduct struct {
	Product domain.Product
	Pricing domain.PricingResult
}

// ProductFilter narrows and pages catalog listings.
type ProductFilter struct {
	CategoryID string
	Brand      string
	Search     string
	PageSize   int
	PageToken  string
}

// CatalogService serves priced catalog reads.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[PricedProduct], error)
	GetProduct(ctx context.Context, productID string) (PricedProduct, error)
	GetProductBySlug(ctx context.Context, slug string) (PricedProduct, error)
}

// ActiveProgramSource yields the active-program snapshot shared by a request.
type ActiveProgramSource interface {
	ActivePrograms(ctx context.Context) ([]domain.SaleProgram, error)
}

// UpsertProgramCommand carries admin input for creating or updating a program.
type UpsertProgramCommand struct {
	ID          string
	Title       string
	Description string
	Badge       string
	Type        domain.ProgramType
	Benefits    domain.ProgramBenefits
	Conditions  domain.ProgramConditions
	StartsAt    time.Time
	EndsAt      time.Time
	Active      bool
}

// ProgramFilter narrows and pages admin program listings.
type ProgramFilter struct {
	Type      domain.ProgramType
	PageSize  int
	PageToken string
}

// ProgramService manages sale programs and the active snapshot they feed.
type ProgramService interface {
	ActiveProgramSource
	ListPrograms(ctx context.Context, filter ProgramFilter) (domain.CursorPage[domain.SaleProgram], error)
	GetProgram(ctx context.Context, programID string) (domain.SaleProgram, error)
	CreateProgram(ctx context.Context, cmd UpsertProgramCommand) (domain.SaleProgram, error)
	UpdateProgram(ctx context.Context, cmd UpsertProgramCommand) (domain.SaleProgram, error)
	DeleteProgram(ctx context.Context, programID string) error
}

// ProgramChangeEvent notifies downstream consumers that the program set changed.
type ProgramChangeEvent struct {
	ProgramID  string    `json:"programId"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ProgramEventPublisher fans program-change events out to interested consumers.
type ProgramEventPublisher interface {
	PublishProgramChange(ctx context.Context, event ProgramChangeEvent) (string, error)
}

// ShippingQuoteItem is one requested cart line.
type ShippingQuoteItem struct {
	ProductID string
	Quantity  int
}

// ShippingQuoteCommand carries a shipping quote request.
type ShippingQuoteCommand struct {
	Items         []ShippingQuoteItem
	City          string
	PaymentMethod domain.PaymentMethod
	UserID        string
}

// ShippingQuote is the quoted fee plus the priced cart it was computed from.
type ShippingQuote struct {
	Result   domain.ShippingResult
	Subtotal int64
	Items    []domain.ShippingItem
}

// ShippingQuoteService resolves checkout shipping fees.
type ShippingQuoteService interface {
	Quote(ctx context.Context, cmd ShippingQuoteCommand) (ShippingQuote, error)
}

// BuildInfo describes the running binary for health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemService aggregates operational status for health endpoints.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
	Build() BuildInfo
}
