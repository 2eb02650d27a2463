package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/platform/auth"
	"github.com/shiny-beauty/api/internal/platform/httpx"
	"github.com/shiny-beauty/api/internal/repositories"
	"github.com/shiny-beauty/api/internal/services"
)

const maxShippingBodySize = 64 * 1024

// ShippingHandlers exposes the checkout shipping fee endpoint.
type ShippingHandlers struct {
	quotes  services.ShippingQuoteService
	limiter rateLimiter
}

// ShippingOption customises ShippingHandlers construction.
type ShippingOption func(*ShippingHandlers)

// WithShippingRateLimit throttles quote requests per caller. The quote
// endpoint accepts anonymous traffic, so it is the one surface worth capping.
func WithShippingRateLimit(limit int, window time.Duration) ShippingOption {
	return func(h *ShippingHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, nil)
	}
}

// NewShippingHandlers constructs shipping handlers.
func NewShippingHandlers(quotes services.ShippingQuoteService, opts ...ShippingOption) *ShippingHandlers {
	h := &ShippingHandlers{quotes: quotes}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /shipping endpoints.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/quote", h.quote)
}

func (h *ShippingHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(quoteLimitKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many quote requests", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxShippingBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req shippingQuoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.ShippingQuoteCommand{
		City:          strings.TrimSpace(req.City),
		PaymentMethod: domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.ShippingQuoteItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	// Loyalty perks only apply to signed-in shoppers.
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		cmd.UserID = strings.TrimSpace(identity.UID)
	}

	quote, err := h.quotes.Quote(ctx, cmd)
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildShippingQuotePayload(quote))
}

// quoteLimitKey buckets signed-in callers by UID and anonymous ones by peer
// address.
func quoteLimitKey(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity != nil && identity.UID != "" {
		return "uid:" + identity.UID
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return "addr:" + host
}

type shippingQuoteRequest struct {
	Items         []shippingQuoteItemRequest `json:"items"`
	City          string                     `json:"city"`
	PaymentMethod string                     `json:"paymentMethod"`
}

type shippingQuoteItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type shippingQuoteResponse struct {
	Fee         int64                      `json:"shippingFee"`
	Reason      string                     `json:"reason"`
	Description string                     `json:"description,omitempty"`
	Breakdown   map[string]int64           `json:"breakdown,omitempty"`
	City        string                     `json:"city,omitempty"`
	Subtotal    int64                      `json:"subtotal"`
	Items       []shippingQuoteItemPayload `json:"items"`
}

type shippingQuoteItemPayload struct {
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unitPrice"`
	FreeShipping bool   `json:"freeShipping"`
}

func buildShippingQuotePayload(quote services.ShippingQuote) shippingQuoteResponse {
	payload := shippingQuoteResponse{
		Fee:         quote.Result.Fee,
		Reason:      string(quote.Result.Reason),
		Description: quote.Result.Description,
		Breakdown:   quote.Result.Breakdown,
		City:        quote.Result.City,
		Subtotal:    quote.Subtotal,
		Items:       make([]shippingQuoteItemPayload, 0, len(quote.Items)),
	}
	for _, item := range quote.Items {
		payload.Items = append(payload.Items, shippingQuoteItemPayload{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			FreeShipping: item.FreeShipping,
		})
	}
	return payload
}

func writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrShippingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShippingProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "one or more cart products were not found", http.StatusNotFound))
	default:
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping repository unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "failed to compute shipping quote", http.StatusInternalServerError))
	}
}
