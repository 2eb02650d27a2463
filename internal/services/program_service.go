package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/platform/cache"
	"github.com/shiny-beauty/api/internal/repositories"
)

var (
	// ErrProgramRepositoryMissing indicates the repository dependency is absent.
	ErrProgramRepositoryMissing = errors.New("program service: repository is not configured")
	// ErrProgramInvalidInput indicates the admin supplied invalid program data.
	ErrProgramInvalidInput = errors.New("program service: invalid input")
	// ErrProgramNotFound indicates the requested program does not exist.
	ErrProgramNotFound = errors.New("program service: program not found")
	// ErrProgramConflict indicates a concurrent or duplicate mutation.
	ErrProgramConflict = errors.New("program service: conflict")
)

// SnapshotCache is the subset of the cache layer the program service needs.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	DeletePattern(ctx context.Context, pattern string) error
}

// ProgramServiceDeps bundles constructor inputs for the program service.
type ProgramServiceDeps struct {
	Programs  repositories.ProgramRepository
	Cache     SnapshotCache
	Publisher ProgramEventPublisher
	Clock     func() time.Time
	Logger    func(context.Context, string, map[string]any)
}

type programService struct {
	repo        repositories.ProgramRepository
	cache       SnapshotCache
	publisher   ProgramEventPublisher
	clock       func() time.Time
	logger      func(context.Context, string, map[string]any)
	titlePolicy *bluemonday.Policy
	descPolicy  *bluemonday.Policy
}

// NewProgramService wires a ProgramService backed by the provided repository.
// Cache and publisher are optional; without them the service still serves
// reads and writes, just without snapshot caching or change events.
func NewProgramService(deps ProgramServiceDeps) (ProgramService, error) {
	if deps.Programs == nil {
		return nil, ErrProgramRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &programService{
		repo:        deps.Programs,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
		titlePolicy: bluemonday.StrictPolicy(),
		descPolicy:  bluemonday.UGCPolicy(),
	}, nil
}

// ActivePrograms returns enabled programs whose window covers now, in the
// repository's documented order. The full enabled set is cached; window
// filtering happens per call so a cached snapshot never serves an expired
// program.
func (s *programService) ActivePrograms(ctx context.Context) ([]domain.SaleProgram, error) {
	if s == nil || s.repo == nil {
		return nil, ErrProgramRepositoryMissing
	}

	var enabled []domain.SaleProgram
	fromCache := false
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, cache.ActiveProgramsKey(), &enabled)
		if err != nil {
			s.logger(ctx, "program_snapshot_cache_error", map[string]any{"error": err.Error()})
		}
		fromCache = err == nil && hit
	}

	if !fromCache {
		var err error
		enabled, err = s.repo.ListEnabled(ctx)
		if err != nil {
			return nil, translateProgramError(err)
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, cache.ActiveProgramsKey(), enabled); err != nil {
				s.logger(ctx, "program_snapshot_cache_error", map[string]any{"error": err.Error()})
			}
		}
	}

	now := s.clock()
	active := make([]domain.SaleProgram, 0, len(enabled))
	for _, program := range enabled {
		if program.ActiveAt(now) {
			active = append(active, program)
		}
	}
	return active, nil
}

func (s *programService) ListPrograms(ctx context.Context, filter ProgramFilter) (domain.CursorPage[domain.SaleProgram], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[domain.SaleProgram]{}, ErrProgramRepositoryMissing
	}
	page, err := s.repo.List(ctx, repositories.ProgramListFilter{
		Type:      filter.Type,
		PageSize:  filter.PageSize,
		PageToken: strings.TrimSpace(filter.PageToken),
	})
	if err != nil {
		return domain.CursorPage[domain.SaleProgram]{}, translateProgramError(err)
	}
	return page, nil
}

func (s *programService) GetProgram(ctx context.Context, programID string) (domain.SaleProgram, error) {
	if s == nil || s.repo == nil {
		return domain.SaleProgram{}, ErrProgramRepositoryMissing
	}
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return domain.SaleProgram{}, fmt.Errorf("%w: program id is required", ErrProgramInvalidInput)
	}

	var program domain.SaleProgram
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, cache.ProgramKey(programID), &program)
		if err != nil {
			s.logger(ctx, "program_cache_error", map[string]any{"programId": programID, "error": err.Error()})
		} else if hit {
			return program, nil
		}
	}

	program, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return domain.SaleProgram{}, translateProgramError(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.ProgramKey(programID), program); err != nil {
			s.logger(ctx, "program_cache_error", map[string]any{"programId": programID, "error": err.Error()})
		}
	}
	return program, nil
}

func (s *programService) CreateProgram(ctx context.Context, cmd UpsertProgramCommand) (domain.SaleProgram, error) {
	if s == nil || s.repo == nil {
		return domain.SaleProgram{}, ErrProgramRepositoryMissing
	}
	program, err := s.programFromCommand(cmd)
	if err != nil {
		return domain.SaleProgram{}, err
	}

	now := s.clock()
	if strings.TrimSpace(program.ID) == "" {
		program.ID = ulid.Make().String()
	}
	program.CreatedAt = now
	program.UpdatedAt = now

	if err := s.repo.Insert(ctx, program); err != nil {
		return domain.SaleProgram{}, translateProgramError(err)
	}
	s.afterMutation(ctx, program.ID, "created")
	return program, nil
}

func (s *programService) UpdateProgram(ctx context.Context, cmd UpsertProgramCommand) (domain.SaleProgram, error) {
	if s == nil || s.repo == nil {
		return domain.SaleProgram{}, ErrProgramRepositoryMissing
	}
	programID := strings.TrimSpace(cmd.ID)
	if programID == "" {
		return domain.SaleProgram{}, fmt.Errorf("%w: program id is required", ErrProgramInvalidInput)
	}
	existing, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return domain.SaleProgram{}, translateProgramError(err)
	}

	program, err := s.programFromCommand(cmd)
	if err != nil {
		return domain.SaleProgram{}, err
	}
	program.ID = programID
	program.CreatedAt = existing.CreatedAt
	program.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, program); err != nil {
		return domain.SaleProgram{}, translateProgramError(err)
	}
	s.afterMutation(ctx, program.ID, "updated")
	return program, nil
}

func (s *programService) DeleteProgram(ctx context.Context, programID string) error {
	if s == nil || s.repo == nil {
		return ErrProgramRepositoryMissing
	}
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return fmt.Errorf("%w: program id is required", ErrProgramInvalidInput)
	}
	if _, err := s.repo.FindByID(ctx, programID); err != nil {
		return translateProgramError(err)
	}
	if err := s.repo.Delete(ctx, programID); err != nil {
		return translateProgramError(err)
	}
	s.afterMutation(ctx, programID, "deleted")
	return nil
}

// programFromCommand validates and normalises admin input.
func (s *programService) programFromCommand(cmd UpsertProgramCommand) (domain.SaleProgram, error) {
	title := strings.TrimSpace(s.titlePolicy.Sanitize(cmd.Title))
	if title == "" {
		return domain.SaleProgram{}, fmt.Errorf("%w: title is required", ErrProgramInvalidInput)
	}
	if !domain.KnownProgramType(cmd.Type) {
		return domain.SaleProgram{}, fmt.Errorf("%w: unknown program type %q", ErrProgramInvalidInput, cmd.Type)
	}
	if !cmd.StartsAt.IsZero() && !cmd.EndsAt.IsZero() && !cmd.EndsAt.After(cmd.StartsAt) {
		return domain.SaleProgram{}, fmt.Errorf("%w: program window must end after it starts", ErrProgramInvalidInput)
	}

	benefits := cmd.Benefits
	if benefits.DiscountPercent != nil && benefits.DiscountAmount != nil {
		return domain.SaleProgram{}, fmt.Errorf("%w: percent and fixed amount benefits are mutually exclusive", ErrProgramInvalidInput)
	}
	if benefits.DiscountPercent != nil {
		if pct := *benefits.DiscountPercent; pct < 0 || pct > 100 {
			return domain.SaleProgram{}, fmt.Errorf("%w: discount percent %d out of range", ErrProgramInvalidInput, pct)
		}
	}
	if benefits.DiscountAmount != nil && *benefits.DiscountAmount < 0 {
		return domain.SaleProgram{}, fmt.Errorf("%w: discount amount must not be negative", ErrProgramInvalidInput)
	}
	if benefits.DiscountPercent == nil && benefits.DiscountAmount == nil && !benefits.FreeShipping {
		return domain.SaleProgram{}, fmt.Errorf("%w: program must define a benefit", ErrProgramInvalidInput)
	}

	conditions := domain.ProgramConditions{
		AllProducts: cmd.Conditions.AllProducts,
		ProductIDs:  normaliseList(cmd.Conditions.ProductIDs),
		CategoryIDs: normaliseList(cmd.Conditions.CategoryIDs),
		Brands:      normaliseList(cmd.Conditions.Brands),
	}
	if !conditions.AllProducts && !conditions.HasTargeting() {
		return domain.SaleProgram{}, fmt.Errorf("%w: program must target products or opt in to all products", ErrProgramInvalidInput)
	}

	return domain.SaleProgram{
		ID:          strings.TrimSpace(cmd.ID),
		Title:       title,
		Description: strings.TrimSpace(s.descPolicy.Sanitize(cmd.Description)),
		Badge:       strings.TrimSpace(s.titlePolicy.Sanitize(cmd.Badge)),
		Type:        cmd.Type,
		Benefits:    benefits,
		Conditions:  conditions,
		StartsAt:    cmd.StartsAt.UTC(),
		EndsAt:      cmd.EndsAt.UTC(),
		Active:      cmd.Active,
	}, nil
}

// afterMutation invalidates the snapshot cache and publishes a change event.
// Both are best effort; a mutation that persisted is never rolled back here.
func (s *programService) afterMutation(ctx context.Context, programID string, action string) {
	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, cache.ProgramPattern()); err != nil {
			s.logger(ctx, "program_cache_invalidate_error", map[string]any{
				"programId": programID,
				"error":     err.Error(),
			})
		}
	}
	if s.publisher != nil {
		event := ProgramChangeEvent{
			ProgramID:  programID,
			Action:     action,
			OccurredAt: s.clock(),
		}
		if _, err := s.publisher.PublishProgramChange(ctx, event); err != nil {
			s.logger(ctx, "program_event_publish_error", map[string]any{
				"programId": programID,
				"action":    action,
				"error":     err.Error(),
			})
		}
	}
}

func translateProgramError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrProgramNotFound
		case repoErr.IsConflict():
			return ErrProgramConflict
		}
	}
	return err
}

func normaliseList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
