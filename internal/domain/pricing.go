package domain

// OfferType tags the discount source that won the best-offer selection.
type OfferType string

const (
	OfferRegular     OfferType = "regular"
	OfferDirectSale  OfferType = "direct_sale"
	OfferSaleProgram OfferType = "sale_program"
	OfferFlashSale   OfferType = "flash_sale"
)

// PricingResult captures the resolved price for one product in one request.
// Invariants: DisplayPrice <= OriginalPrice, Discount = OriginalPrice-DisplayPrice,
// DiscountPercent = round(Discount/OriginalPrice*100) when OriginalPrice > 0.
type PricingResult struct {
	ProductID       string
	DisplayPrice    int64
	OriginalPrice   int64
	Discount        int64
	DiscountPercent int
	Savings         int64
	Type            OfferType
	ProgramID       string
	ProgramTitle    string
	ProgramBadge    string
	FreeShipping    bool
}

// OnSale reports whether any discount source won over the regular price.
func (r PricingResult) OnSale() bool {
	return r.Type != OfferRegular && r.Type != ""
}

// PaymentMethod enumerates checkout payment options relevant to shipping fees.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentStripe PaymentMethod = "STRIPE"
	PaymentPaypal PaymentMethod = "PAYPAL"
)

// ShippingReason tags which rule produced a shipping quote.
type ShippingReason string

const (
	ShipReasonProgramBenefit    ShippingReason = "SALE_PROGRAM_BENEFIT"
	ShipReasonLoyaltyBenefit    ShippingReason = "LOYALTY_BENEFIT"
	ShipReasonItemFreeShipping  ShippingReason = "ITEM_FREE_SHIPPING"
	ShipReasonQuantityThreshold ShippingReason = "QUANTITY_THRESHOLD"
	ShipReasonSubtotalThreshold ShippingReason = "SUBTOTAL_THRESHOLD"
	ShipReasonRegionTier        ShippingReason = "REGION_TIER"
	ShipReasonCODSurcharge      ShippingReason = "COD_SURCHARGE"
	ShipReasonFlatRate          ShippingReason = "FLAT_RATE"
)

// ShippingItem is one cart line considered by the shipping rule chain.
type ShippingItem struct {
	ProductID    string
	Quantity     int
	UnitPrice    int64
	FreeShipping bool
}

// ShippingContext bundles everything the rule chain needs for one checkout.
// It is assembled per request and treated as a read-only snapshot.
type ShippingContext struct {
	Items               []ShippingItem
	Subtotal            int64
	CartFreeShipping    bool
	LoyaltyFreeShipping bool
	City                string
	PaymentMethod       PaymentMethod
	UseRegionRates      bool
}

// TotalQuantity sums the quantities of every cart line.
func (c ShippingContext) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		if item.Quantity > 0 {
			total += item.Quantity
		}
	}
	return total
}

// ShippingResult is the outcome of resolving the shipping rule chain.
type ShippingResult struct {
	Fee         int64
	Reason      ShippingReason
	Rule        string
	Description string
	Breakdown   map[string]int64
	City        string
}
