package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shiny-beauty/api/internal/domain"
)

// Annotator walks an outgoing response payload and attaches resolved pricing
// to every recognised product shape. It is an explicit post-processing stage
// invoked by the response-building layer; it never mutates its input and never
// fails the response: on any internal error the original payload is returned.
type Annotator struct {
	resolver *Resolver
	logger   func(context.Context, string, map[string]any)
}

// AnnotatorDeps configures an Annotator.
type AnnotatorDeps struct {
	Resolver *Resolver
	Logger   func(context.Context, string, map[string]any)
}

// NewAnnotator constructs an Annotator bound to the provided resolver.
func NewAnnotator(deps AnnotatorDeps) (*Annotator, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("pricing annotator: resolver is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Annotator{resolver: deps.Resolver, logger: logger}, nil
}

// Annotate returns a copy of payload with pricing fields merged onto every
// recognised product object. Recognised shapes are {product}, {products:[...]},
// {data:{product}}, and {data:{products:[...]}}. Anything else passes through
// untouched, as does any product object that cannot be interpreted.
func (a *Annotator) Annotate(ctx context.Context, payload map[string]any, programs []domain.SaleProgram) (out map[string]any) {
	if a == nil || a.resolver == nil || payload == nil {
		return payload
	}

	out = payload
	defer func() {
		if rec := recover(); rec != nil {
			a.logger(ctx, "pricing_annotate_panic", map[string]any{"panic": fmt.Sprint(rec)})
			out = payload
		}
	}()

	annotated := make(map[string]any, len(payload))
	for key, value := range payload {
		annotated[key] = value
	}

	a.annotateLevel(ctx, annotated, programs)

	if data, ok := annotated["data"].(map[string]any); ok {
		nested := make(map[string]any, len(data))
		for key, value := range data {
			nested[key] = value
		}
		a.annotateLevel(ctx, nested, programs)
		annotated["data"] = nested
	}

	return annotated
}

func (a *Annotator) annotateLevel(ctx context.Context, level map[string]any, programs []domain.SaleProgram) {
	if single, ok := level["product"].(map[string]any); ok {
		level["product"] = a.annotateProduct(ctx, single, programs)
	}
	if list, ok := level["products"].([]any); ok {
		annotated := make([]any, len(list))
		for i, entry := range list {
			if productMap, ok := entry.(map[string]any); ok {
				annotated[i] = a.annotateProduct(ctx, productMap, programs)
				continue
			}
			annotated[i] = entry
		}
		level["products"] = annotated
	}
}

func (a *Annotator) annotateProduct(ctx context.Context, raw map[string]any, programs []domain.SaleProgram) map[string]any {
	product, ok := productFromPayload(raw)
	if !ok {
		return raw
	}

	result := a.resolver.Resolve(ctx, product, programs)

	merged := make(map[string]any, len(raw)+10)
	for key, value := range raw {
		merged[key] = value
	}
	merged["currentPrice"] = result.DisplayPrice
	merged["finalPrice"] = result.DisplayPrice
	merged["originalPrice"] = result.OriginalPrice
	merged["discount"] = result.Discount
	merged["discountPercentage"] = result.DiscountPercent
	merged["savings"] = result.Savings
	merged["hasSale"] = result.OnSale()
	merged["isOnSale"] = result.OnSale()
	merged["saleType"] = string(result.Type)
	if result.ProgramID != "" {
		program := map[string]any{"id": result.ProgramID, "title": result.ProgramTitle}
		if result.ProgramBadge != "" {
			program["badge"] = result.ProgramBadge
		}
		merged["activeSaleProgram"] = program
	} else {
		merged["activeSaleProgram"] = nil
	}
	return merged
}

// productFromPayload interprets a JSON product object. It tolerates both
// decoded-JSON values (float64, json.Number) and values produced directly
// from domain structs. A missing id or price makes the object unrecognisable.
func productFromPayload(raw map[string]any) (domain.Product, bool) {
	id := stringField(raw, "id")
	if id == "" {
		id = stringField(raw, "_id")
	}
	price, priceOK := int64Field(raw, "price")
	if id == "" || !priceOK {
		return domain.Product{}, false
	}

	product := domain.Product{
		ID:            id,
		Brand:         stringField(raw, "brand"),
		Price:         price,
		SaleActive:    boolField(raw, "isSaleActive"),
		SaleProgramID: stringField(raw, "saleProgramId"),
	}
	if original, ok := int64Field(raw, "originalPrice"); ok {
		product.OriginalPrice = &original
	}
	if sale, ok := int64Field(raw, "salePrice"); ok {
		product.SalePrice = &sale
	}
	if categories, ok := raw["category"].([]any); ok {
		for _, entry := range categories {
			switch v := entry.(type) {
			case string:
				product.Categories = append(product.Categories, domain.CategoryRef{ID: v})
			case map[string]any:
				ref := domain.CategoryRef{ID: stringField(v, "id"), Name: stringField(v, "name")}
				if ref.ID == "" {
					ref.ID = stringField(v, "_id")
				}
				product.Categories = append(product.Categories, ref)
			}
		}
	}
	return product, true
}

func stringField(raw map[string]any, key string) string {
	value, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func boolField(raw map[string]any, key string) bool {
	value, ok := raw[key].(bool)
	return ok && value
}

func int64Field(raw map[string]any, key string) (int64, bool) {
	switch v := raw[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
