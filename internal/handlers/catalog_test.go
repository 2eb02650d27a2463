package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/services"
)

type stubCatalogService struct {
	listFilter services.ProductFilter
	listPage   domain.CursorPage[services.PricedProduct]
	listErr    error

	getID      string
	getSlug    string
	getProduct services.PricedProduct
	getErr     error
}

func (s *stubCatalogService) ListProducts(_ context.Context, filter services.ProductFilter) (domain.CursorPage[services.PricedProduct], error) {
	s.listFilter = filter
	return s.listPage, s.listErr
}

func (s *stubCatalogService) GetProduct(_ context.Context, productID string) (services.PricedProduct, error) {
	s.getID = productID
	return s.getProduct, s.getErr
}

func (s *stubCatalogService) GetProductBySlug(_ context.Context, slug string) (services.PricedProduct, error) {
	s.getSlug = slug
	return s.getProduct, s.getErr
}

func newCatalogRouter(svc services.CatalogService) http.Handler {
	r := chi.NewRouter()
	r.Route("/products", NewCatalogHandlers(svc).Routes)
	return r
}

func samplePricedProduct() services.PricedProduct {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return services.PricedProduct{
		Product: domain.Product{
			ID:           "prod-1",
			Name:         "Rose Serum",
			Slug:         "rose-serum",
			Brand:        "Bloom",
			CountInStock: 12,
			Categories:   []domain.CategoryRef{{ID: "cat-1", Name: "Skincare", Slug: "skincare"}},
			Images:       []string{"https://cdn.example.com/rose.jpg"},
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		Pricing: domain.PricingResult{
			ProductID:       "prod-1",
			DisplayPrice:    4000,
			OriginalPrice:   5000,
			Discount:        1000,
			DiscountPercent: 20,
			Savings:         1000,
			Type:            domain.OfferSaleProgram,
			ProgramID:       "sp-1",
			ProgramTitle:    "Spring Sale",
			ProgramBadge:    "SPRING",
			FreeShipping:    true,
		},
	}
}

func TestCatalogHandlersGetProduct(t *testing.T) {
	svc := &stubCatalogService{getProduct: samplePricedProduct()}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/prod-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body %s", rr.Code, rr.Body.String())
	}
	if svc.getID != "prod-1" {
		t.Fatalf("expected lookup for prod-1, got %q", svc.getID)
	}

	var body struct {
		Product map[string]any `json:"product"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	product := body.Product
	if product["id"] != "prod-1" {
		t.Fatalf("expected product id prod-1, got %v", product["id"])
	}
	if product["currentPrice"] != float64(4000) || product["finalPrice"] != float64(4000) {
		t.Fatalf("expected current/final price 4000, got %v/%v", product["currentPrice"], product["finalPrice"])
	}
	if product["originalPrice"] != float64(5000) {
		t.Fatalf("expected original price 5000, got %v", product["originalPrice"])
	}
	if product["discountPercentage"] != float64(20) {
		t.Fatalf("expected discount percentage 20, got %v", product["discountPercentage"])
	}
	if product["savings"] != float64(1000) {
		t.Fatalf("expected savings 1000, got %v", product["savings"])
	}
	if product["hasSale"] != true || product["isOnSale"] != true {
		t.Fatalf("expected sale flags set, got %v/%v", product["hasSale"], product["isOnSale"])
	}
	if product["saleType"] != string(domain.OfferSaleProgram) {
		t.Fatalf("expected sale type sale_program, got %v", product["saleType"])
	}
	if product["freeShipping"] != true {
		t.Fatalf("expected free shipping from program benefit, got %v", product["freeShipping"])
	}

	program, ok := product["activeSaleProgram"].(map[string]any)
	if !ok {
		t.Fatalf("expected activeSaleProgram object, got %v", product["activeSaleProgram"])
	}
	if program["id"] != "sp-1" || program["title"] != "Spring Sale" || program["badge"] != "SPRING" {
		t.Fatalf("unexpected activeSaleProgram payload %v", program)
	}
}

func TestCatalogHandlersGetProductRegularPrice(t *testing.T) {
	priced := services.PricedProduct{
		Product: domain.Product{ID: "prod-2", Name: "Plain Cleanser"},
		Pricing: domain.PricingResult{
			ProductID:     "prod-2",
			DisplayPrice:  3000,
			OriginalPrice: 3000,
			Type:          domain.OfferRegular,
		},
	}
	svc := &stubCatalogService{getProduct: priced}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/prod-2", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Product map[string]any `json:"product"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Product["isOnSale"] != false {
		t.Fatalf("expected regular product not on sale, got %v", body.Product["isOnSale"])
	}
	if _, ok := body.Product["activeSaleProgram"]; !ok {
		t.Fatal("expected activeSaleProgram key to be present")
	}
	if body.Product["activeSaleProgram"] != nil {
		t.Fatalf("expected null activeSaleProgram, got %v", body.Product["activeSaleProgram"])
	}
}

func TestCatalogHandlersGetProductBySlug(t *testing.T) {
	svc := &stubCatalogService{getProduct: samplePricedProduct()}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/slug/rose-serum", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if svc.getSlug != "rose-serum" {
		t.Fatalf("expected slug lookup rose-serum, got %q", svc.getSlug)
	}
}

func TestCatalogHandlersListProducts(t *testing.T) {
	svc := &stubCatalogService{
		listPage: domain.CursorPage[services.PricedProduct]{
			Items:         []services.PricedProduct{samplePricedProduct()},
			NextPageToken: "next-token",
		},
	}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products?category=cat-1&brand=Bloom&q=rose&pageSize=5", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body %s", rr.Code, rr.Body.String())
	}

	if svc.listFilter.CategoryID != "cat-1" || svc.listFilter.Brand != "Bloom" || svc.listFilter.Search != "rose" {
		t.Fatalf("unexpected filter %+v", svc.listFilter)
	}
	if svc.listFilter.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", svc.listFilter.PageSize)
	}

	var body struct {
		Products      []map[string]any `json:"products"`
		NextPageToken string           `json:"nextPageToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(body.Products))
	}
	if body.NextPageToken != "next-token" {
		t.Fatalf("expected next page token, got %q", body.NextPageToken)
	}
}

func TestCatalogHandlersListProductsDefaultPageSize(t *testing.T) {
	svc := &stubCatalogService{}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if svc.listFilter.PageSize != defaultCatalogPageSize {
		t.Fatalf("expected default page size %d, got %d", defaultCatalogPageSize, svc.listFilter.PageSize)
	}
}

func TestCatalogHandlersProductNotFound(t *testing.T) {
	svc := &stubCatalogService{getErr: services.ErrCatalogProductNotFound}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "product_not_found" {
		t.Fatalf("expected product_not_found code, got %v", body["error"])
	}
}

func TestCatalogHandlersInvalidInput(t *testing.T) {
	svc := &stubCatalogService{getErr: services.ErrCatalogInvalidInput}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/%20", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
