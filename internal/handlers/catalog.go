package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shiny-beauty/api/internal/platform/httpx"
	"github.com/shiny-beauty/api/internal/platform/pagination"
	"github.com/shiny-beauty/api/internal/repositories"
	"github.com/shiny-beauty/api/internal/services"
)

const (
	defaultCatalogPageSize = 20
	maxCatalogPageSize     = 100
)

// CatalogHandlers exposes the public priced catalog endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the /products endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/slug/{slug}", h.getProductBySlug)
	r.Get("/{productID}", h.getProduct)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultCatalogPageSize,
		MaxPageSize:     maxCatalogPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := r.URL.Query()
	filter := services.ProductFilter{
		CategoryID: strings.TrimSpace(query.Get("category")),
		Brand:      strings.TrimSpace(query.Get("brand")),
		Search:     strings.TrimSpace(query.Get("q")),
		PageSize:   params.PageSize,
		PageToken:  params.PageToken,
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, buildProductPayload(item))
	}

	writeJSONResponse(w, http.StatusOK, productListResponse{
		Products:      items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) getProductBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	product, err := h.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

type productListResponse struct {
	Products      []productPayload `json:"products"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Slug               string             `json:"slug,omitempty"`
	Brand              string             `json:"brand,omitempty"`
	Description        string             `json:"description,omitempty"`
	Categories         []categoryPayload  `json:"categories,omitempty"`
	Images             []string           `json:"images,omitempty"`
	CountInStock       int                `json:"countInStock"`
	FreeShipping       bool               `json:"freeShipping"`
	CurrentPrice       int64              `json:"currentPrice"`
	FinalPrice         int64              `json:"finalPrice"`
	OriginalPrice      int64              `json:"originalPrice"`
	Discount           int64              `json:"discount"`
	DiscountPercentage int                `json:"discountPercentage"`
	Savings            int64              `json:"savings"`
	HasSale            bool               `json:"hasSale"`
	IsOnSale           bool               `json:"isOnSale"`
	SaleType           string             `json:"saleType"`
	ActiveSaleProgram  *salePromoPayload  `json:"activeSaleProgram"`
	CreatedAt          string             `json:"createdAt,omitempty"`
	UpdatedAt          string             `json:"updatedAt,omitempty"`
}

type categoryPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type salePromoPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Badge string `json:"badge,omitempty"`
}

func buildProductPayload(priced services.PricedProduct) productPayload {
	product := priced.Product
	pricing := priced.Pricing

	payload := productPayload{
		ID:                 product.ID,
		Name:               product.Name,
		Slug:               product.Slug,
		Brand:              product.Brand,
		Description:        product.Description,
		Images:             product.Images,
		CountInStock:       product.CountInStock,
		FreeShipping:       product.FreeShipping || pricing.FreeShipping,
		CurrentPrice:       pricing.DisplayPrice,
		FinalPrice:         pricing.DisplayPrice,
		OriginalPrice:      pricing.OriginalPrice,
		Discount:           pricing.Discount,
		DiscountPercentage: pricing.DiscountPercent,
		Savings:            pricing.Savings,
		HasSale:            pricing.OnSale(),
		IsOnSale:           pricing.OnSale(),
		SaleType:           string(pricing.Type),
		CreatedAt:          formatTime(product.CreatedAt),
		UpdatedAt:          formatTime(product.UpdatedAt),
	}

	for _, category := range product.Categories {
		payload.Categories = append(payload.Categories, categoryPayload{
			ID:   category.ID,
			Name: category.Name,
			Slug: category.Slug,
		})
	}

	if pricing.ProgramID != "" {
		payload.ActiveSaleProgram = &salePromoPayload{
			ID:    pricing.ProgramID,
			Title: pricing.ProgramTitle,
			Badge: pricing.ProgramBadge,
		}
	}

	return payload
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	default:
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog repository unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to load catalog data", http.StatusInternalServerError))
	}
}
