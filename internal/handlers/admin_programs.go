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
	"github.com/shiny-beauty/api/internal/platform/pagination"
	"github.com/shiny-beauty/api/internal/repositories"
	"github.com/shiny-beauty/api/internal/services"
)

const (
	maxProgramBodySize     = 128 * 1024
	defaultProgramPageSize = 20
	maxProgramPageSize     = 100
)

// AdminProgramHandlers exposes the sale program management endpoints.
type AdminProgramHandlers struct {
	authn    *auth.Authenticator
	programs services.ProgramService
}

// NewAdminProgramHandlers constructs admin program handlers.
func NewAdminProgramHandlers(authn *auth.Authenticator, programs services.ProgramService) *AdminProgramHandlers {
	return &AdminProgramHandlers{authn: authn, programs: programs}
}

// Routes registers the /admin/programs endpoints.
func (h *AdminProgramHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Route("/programs", func(rt chi.Router) {
		rt.Get("/", h.listPrograms)
		rt.Post("/", h.createProgram)
		rt.Get("/{programID}", h.getProgram)
		rt.Put("/{programID}", h.updateProgram)
		rt.Delete("/{programID}", h.deleteProgram)
	})
}

func (h *AdminProgramHandlers) listPrograms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.programs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program service unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultProgramPageSize,
		MaxPageSize:     maxProgramPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ProgramFilter{
		Type:      domain.ProgramType(strings.TrimSpace(r.URL.Query().Get("type"))),
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}

	page, err := h.programs.ListPrograms(ctx, filter)
	if err != nil {
		writeProgramError(ctx, w, err)
		return
	}

	items := make([]programPayload, 0, len(page.Items))
	for _, program := range page.Items {
		items = append(items, buildProgramPayload(program))
	}

	writeJSONResponse(w, http.StatusOK, programListResponse{
		Programs:      items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminProgramHandlers) getProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.programs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program service unavailable", http.StatusServiceUnavailable))
		return
	}

	programID := strings.TrimSpace(chi.URLParam(r, "programID"))
	program, err := h.programs.GetProgram(ctx, programID)
	if err != nil {
		writeProgramError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, programResponse{Program: buildProgramPayload(program)})
}

func (h *AdminProgramHandlers) createProgram(w http.ResponseWriter, r *http.Request) {
	h.saveProgram(w, r, "")
}

func (h *AdminProgramHandlers) updateProgram(w http.ResponseWriter, r *http.Request) {
	h.saveProgram(w, r, chi.URLParam(r, "programID"))
}

func (h *AdminProgramHandlers) saveProgram(w http.ResponseWriter, r *http.Request, programID string) {
	ctx := r.Context()
	if h.programs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program service unavailable", http.StatusServiceUnavailable))
		return
	}

	cmd, err := decodeProgramRequest(r, programID)
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

	var program domain.SaleProgram
	if programID == "" {
		program, err = h.programs.CreateProgram(ctx, cmd)
	} else {
		program, err = h.programs.UpdateProgram(ctx, cmd)
	}
	if err != nil {
		writeProgramError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, programResponse{Program: buildProgramPayload(program)})
}

func (h *AdminProgramHandlers) deleteProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.programs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program service unavailable", http.StatusServiceUnavailable))
		return
	}

	programID := strings.TrimSpace(chi.URLParam(r, "programID"))
	if err := h.programs.DeleteProgram(ctx, programID); err != nil {
		writeProgramError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type programListResponse struct {
	Programs      []programPayload `json:"programs"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

type programResponse struct {
	Program programPayload `json:"program"`
}

type programRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Badge       string                   `json:"badge"`
	Type        string                   `json:"type"`
	Benefits    programBenefitsPayload   `json:"benefits"`
	Conditions  programConditionsPayload `json:"conditions"`
	StartsAt    string                   `json:"startsAt"`
	EndsAt      string                   `json:"endsAt"`
	Active      bool                     `json:"isActive"`
}

func decodeProgramRequest(r *http.Request, programID string) (services.UpsertProgramCommand, error) {
	body, err := readLimitedBody(r, maxProgramBodySize)
	if err != nil {
		return services.UpsertProgramCommand{}, err
	}

	var req programRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return services.UpsertProgramCommand{}, errors.New("invalid JSON payload")
	}

	cmd := services.UpsertProgramCommand{
		ID:          strings.TrimSpace(programID),
		Title:       req.Title,
		Description: req.Description,
		Badge:       req.Badge,
		Type:        domain.ProgramType(strings.TrimSpace(req.Type)),
		Benefits: domain.ProgramBenefits{
			DiscountPercent: req.Benefits.DiscountPercent,
			DiscountAmount:  req.Benefits.DiscountAmount,
			FreeShipping:    req.Benefits.FreeShipping,
		},
		Conditions: domain.ProgramConditions{
			AllProducts: req.Conditions.AllProducts,
			ProductIDs:  req.Conditions.ProductIDs,
			CategoryIDs: req.Conditions.CategoryIDs,
			Brands:      req.Conditions.Brands,
		},
		Active: req.Active,
	}

	if cmd.StartsAt, err = parseProgramTime(req.StartsAt, "startsAt"); err != nil {
		return services.UpsertProgramCommand{}, err
	}
	if cmd.EndsAt, err = parseProgramTime(req.EndsAt, "endsAt"); err != nil {
		return services.UpsertProgramCommand{}, err
	}

	return cmd, nil
}

func parseProgramTime(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(field + " must be an RFC3339 timestamp")
	}
	return ts.UTC(), nil
}

func writeProgramError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrProgramInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProgramNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("program_not_found", "sale program not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProgramConflict):
		httpx.WriteError(ctx, w, httpx.NewError("program_conflict", err.Error(), http.StatusConflict))
	default:
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			httpx.WriteError(ctx, w, httpx.NewError("programs_unavailable", "program repository unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("program_error", "failed to process program request", http.StatusInternalServerError))
	}
}
