package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shiny-beauty/api/internal/platform/httpx"
	"github.com/shiny-beauty/api/internal/pricing"
	"github.com/shiny-beauty/api/internal/services"
)

const maxAnnotateBodySize = 512 * 1024

// AnnotateHandlers decorates arbitrary response payloads with resolved pricing.
// Internal services call this instead of re-implementing the discount rules.
type AnnotateHandlers struct {
	annotator *pricing.Annotator
	programs  services.ActiveProgramSource
}

// NewAnnotateHandlers constructs payload annotation handlers.
func NewAnnotateHandlers(annotator *pricing.Annotator, programs services.ActiveProgramSource) *AnnotateHandlers {
	return &AnnotateHandlers{annotator: annotator, programs: programs}
}

// Routes registers the /pricing endpoints.
func (h *AnnotateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/pricing/annotate", h.annotate)
}

func (h *AnnotateHandlers) annotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.annotator == nil || h.programs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("annotator_unavailable", "pricing annotator unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAnnotateBodySize)
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

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payload must be a JSON object", http.StatusBadRequest))
		return
	}

	programs, err := h.programs.ActivePrograms(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("annotator_error", "failed to load active programs", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, h.annotator.Annotate(ctx, payload, programs))
}
