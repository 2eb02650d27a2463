package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/repositories"
)

func jsonMarshal(value any) ([]byte, error)    { return json.Marshal(value) }
func jsonUnmarshal(data []byte, dest any) error { return json.Unmarshal(data, dest) }

var serviceTestNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return serviceTestNow }

func intRef(v int) *int       { return &v }
func int64Ref(v int64) *int64 { return &v }

// stubRepoError implements repositories.RepositoryError.
type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubProductRepository struct {
	products map[string]domain.Product
	listPage domain.CursorPage[domain.Product]
	err      error
	lastID   string
}

func (s *stubProductRepository) Insert(context.Context, domain.Product) error { return s.err }
func (s *stubProductRepository) Update(context.Context, domain.Product) error { return s.err }

func (s *stubProductRepository) FindByID(_ context.Context, productID string) (domain.Product, error) {
	s.lastID = productID
	if s.err != nil {
		return domain.Product{}, s.err
	}
	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, &stubRepoError{notFound: true}
	}
	return product, nil
}

func (s *stubProductRepository) FindBySlug(_ context.Context, slug string) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	for _, product := range s.products {
		if product.Slug == slug {
			return product, nil
		}
	}
	return domain.Product{}, &stubRepoError{notFound: true}
}

func (s *stubProductRepository) List(context.Context, repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if s.err != nil {
		return domain.CursorPage[domain.Product]{}, s.err
	}
	return s.listPage, nil
}

type stubProgramRepository struct {
	programs  map[string]domain.SaleProgram
	enabled   []domain.SaleProgram
	listPage  domain.CursorPage[domain.SaleProgram]
	err       error
	inserted  []domain.SaleProgram
	updated   []domain.SaleProgram
	deletedID string
	listCalls int
	findCalls int
}

func (s *stubProgramRepository) Insert(_ context.Context, program domain.SaleProgram) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, program)
	return nil
}

func (s *stubProgramRepository) Update(_ context.Context, program domain.SaleProgram) error {
	if s.err != nil {
		return s.err
	}
	s.updated = append(s.updated, program)
	return nil
}

func (s *stubProgramRepository) Delete(_ context.Context, programID string) error {
	if s.err != nil {
		return s.err
	}
	s.deletedID = programID
	return nil
}

func (s *stubProgramRepository) FindByID(_ context.Context, programID string) (domain.SaleProgram, error) {
	s.findCalls++
	if s.err != nil {
		return domain.SaleProgram{}, s.err
	}
	program, ok := s.programs[programID]
	if !ok {
		return domain.SaleProgram{}, &stubRepoError{notFound: true}
	}
	return program, nil
}

func (s *stubProgramRepository) List(context.Context, repositories.ProgramListFilter) (domain.CursorPage[domain.SaleProgram], error) {
	if s.err != nil {
		return domain.CursorPage[domain.SaleProgram]{}, s.err
	}
	return s.listPage, nil
}

func (s *stubProgramRepository) ListEnabled(context.Context) ([]domain.SaleProgram, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.enabled, nil
}

type stubLoyaltyRepository struct {
	tiers map[string]domain.LoyaltyTier
	err   error
}

func (s *stubLoyaltyRepository) FindTier(_ context.Context, tierID string) (domain.LoyaltyTier, error) {
	if s.err != nil {
		return domain.LoyaltyTier{}, s.err
	}
	tier, ok := s.tiers[tierID]
	if !ok {
		return domain.LoyaltyTier{}, &stubRepoError{notFound: true}
	}
	return tier, nil
}

func (s *stubLoyaltyRepository) TierForUser(ctx context.Context, userID string) (domain.LoyaltyTier, error) {
	return s.FindTier(ctx, userID)
}

type stubProgramSource struct {
	programs []domain.SaleProgram
	err      error
}

func (s *stubProgramSource) ActivePrograms(context.Context) ([]domain.SaleProgram, error) {
	return s.programs, s.err
}

// memorySnapshotCache is an in-process SnapshotCache for tests.
type memorySnapshotCache struct {
	values   map[string][]byte
	getErr   error
	setErr   error
	purged   []string
	setCalls int
}

func newMemorySnapshotCache() *memorySnapshotCache {
	return &memorySnapshotCache{values: map[string][]byte{}}
}

func (c *memorySnapshotCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, jsonUnmarshal(data, dest)
}

func (c *memorySnapshotCache) Set(_ context.Context, key string, value any) error {
	if c.setErr != nil {
		return c.setErr
	}
	data, err := jsonMarshal(value)
	if err != nil {
		return err
	}
	c.values[key] = data
	c.setCalls++
	return nil
}

func (c *memorySnapshotCache) DeletePattern(_ context.Context, pattern string) error {
	c.purged = append(c.purged, pattern)
	c.values = map[string][]byte{}
	return nil
}

type stubPublisher struct {
	events []ProgramChangeEvent
	err    error
}

func (p *stubPublisher) PublishProgramChange(_ context.Context, event ProgramChangeEvent) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "msg-1", nil
}
