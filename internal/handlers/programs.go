package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/platform/httpx"
	"github.com/shiny-beauty/api/internal/repositories"
	"github.com/shiny-beauty/api/internal/services"
)

// ProgramHandlers exposes the public view of running sale programs.
type ProgramHandlers struct {
	programs services.ActiveProgramSource
}

// NewProgramHandlers constructs public program handlers.
func NewProgramHandlers(programs services.ActiveProgramSource) *ProgramHandlers {
	return &ProgramHandlers{programs: programs}
}

// Routes registers the /programs endpoints.
func (h *ProgramHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/active", h.listActive)
}

func (h *ProgramHandlers) listActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.programs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program service unavailable", http.StatusServiceUnavailable))
		return
	}

	programs, err := h.programs.ActivePrograms(ctx)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program repository unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("programs_error", "failed to load active programs", http.StatusInternalServerError))
		return
	}

	items := make([]programPayload, 0, len(programs))
	for _, program := range programs {
		items = append(items, buildProgramPayload(program))
	}

	writeJSONResponse(w, http.StatusOK, activeProgramsResponse{Programs: items})
}

type activeProgramsResponse struct {
	Programs []programPayload `json:"programs"`
}

type programPayload struct {
	ID          string                   `json:"id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description,omitempty"`
	Badge       string                   `json:"badge,omitempty"`
	Type        string                   `json:"type"`
	Benefits    programBenefitsPayload   `json:"benefits"`
	Conditions  programConditionsPayload `json:"conditions"`
	StartsAt    string                   `json:"startsAt,omitempty"`
	EndsAt      string                   `json:"endsAt,omitempty"`
	Active      bool                     `json:"isActive"`
	CreatedAt   string                   `json:"createdAt,omitempty"`
	UpdatedAt   string                   `json:"updatedAt,omitempty"`
}

type programBenefitsPayload struct {
	DiscountPercent *int   `json:"discountPercent,omitempty"`
	DiscountAmount  *int64 `json:"discountAmount,omitempty"`
	FreeShipping    bool   `json:"freeShipping"`
}

type programConditionsPayload struct {
	AllProducts bool     `json:"allProducts"`
	ProductIDs  []string `json:"productIds,omitempty"`
	CategoryIDs []string `json:"categoryIds,omitempty"`
	Brands      []string `json:"brands,omitempty"`
}

func buildProgramPayload(program domain.SaleProgram) programPayload {
	return programPayload{
		ID:          program.ID,
		Title:       program.Title,
		Description: program.Description,
		Badge:       program.Badge,
		Type:        string(program.Type),
		Benefits: programBenefitsPayload{
			DiscountPercent: program.Benefits.DiscountPercent,
			DiscountAmount:  program.Benefits.DiscountAmount,
			FreeShipping:    program.Benefits.FreeShipping,
		},
		Conditions: programConditionsPayload{
			AllProducts: program.Conditions.AllProducts,
			ProductIDs:  program.Conditions.ProductIDs,
			CategoryIDs: program.Conditions.CategoryIDs,
			Brands:      program.Conditions.Brands,
		},
		StartsAt:  formatTime(program.StartsAt),
		EndsAt:    formatTime(program.EndsAt),
		Active:    program.Active,
		CreatedAt: formatTime(program.CreatedAt),
		UpdatedAt: formatTime(program.UpdatedAt),
	}
}
