package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/platform/cache"
)

func validProgramCommand() UpsertProgramCommand {
	return UpsertProgramCommand{
		Title:    "Summer Sale",
		Type:     domain.ProgramTypeSeasonal,
		Benefits: domain.ProgramBenefits{DiscountPercent: intRef(20)},
		Conditions: domain.ProgramConditions{
			CategoryIDs: []string{"skincare"},
		},
		StartsAt: serviceTestNow.Add(-time.Hour),
		EndsAt:   serviceTestNow.Add(time.Hour),
		Active:   true,
	}
}

func TestProgramService_CreateProgram(t *testing.T) {
	repo := &stubProgramRepository{programs: map[string]domain.SaleProgram{}}
	snapshotCache := newMemorySnapshotCache()
	publisher := &stubPublisher{}
	svc, err := NewProgramService(ProgramServiceDeps{
		Programs:  repo,
		Cache:     snapshotCache,
		Publisher: publisher,
		Clock:     fixedClock,
	})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	program, err := svc.CreateProgram(context.Background(), validProgramCommand())
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if program.ID == "" {
		t.Fatal("expected generated program id")
	}
	if program.CreatedAt != serviceTestNow || program.UpdatedAt != serviceTestNow {
		t.Fatalf("timestamps = %s/%s, want clock time", program.CreatedAt, program.UpdatedAt)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d programs, want 1", len(repo.inserted))
	}
	if len(snapshotCache.purged) != 1 || snapshotCache.purged[0] != cache.ProgramPattern() {
		t.Fatalf("purged = %v, want one program pattern purge", snapshotCache.purged)
	}
	if len(publisher.events) != 1 || publisher.events[0].Action != "created" {
		t.Fatalf("events = %v, want one created event", publisher.events)
	}
}

func TestProgramService_CreateProgram_Sanitises(t *testing.T) {
	repo := &stubProgramRepository{programs: map[string]domain.SaleProgram{}}
	svc, err := NewProgramService(ProgramServiceDeps{Programs: repo, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	cmd := validProgramCommand()
	cmd.Title = `Flash <script>alert("x")</script> Deal`
	cmd.Badge = "<b>HOT</b>"

	program, err := svc.CreateProgram(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if program.Title != "Flash  Deal" {
		t.Fatalf("title = %q, want markup stripped", program.Title)
	}
	if program.Badge != "HOT" {
		t.Fatalf("badge = %q, want markup stripped", program.Badge)
	}
}

func TestProgramService_CreateProgram_Validation(t *testing.T) {
	svc, err := NewProgramService(ProgramServiceDeps{
		Programs: &stubProgramRepository{programs: map[string]domain.SaleProgram{}},
		Clock:    fixedClock,
	})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*UpsertProgramCommand)
	}{
		{"missing title", func(cmd *UpsertProgramCommand) { cmd.Title = "  " }},
		{"unknown type", func(cmd *UpsertProgramCommand) { cmd.Type = "mystery" }},
		{"inverted window", func(cmd *UpsertProgramCommand) {
			cmd.StartsAt = serviceTestNow
			cmd.EndsAt = serviceTestNow.Add(-time.Hour)
		}},
		{"both benefit kinds", func(cmd *UpsertProgramCommand) {
			cmd.Benefits = domain.ProgramBenefits{DiscountPercent: intRef(10), DiscountAmount: int64Ref(100)}
		}},
		{"percent out of range", func(cmd *UpsertProgramCommand) {
			cmd.Benefits = domain.ProgramBenefits{DiscountPercent: intRef(120)}
		}},
		{"negative amount", func(cmd *UpsertProgramCommand) {
			cmd.Benefits = domain.ProgramBenefits{DiscountAmount: int64Ref(-5)}
		}},
		{"no benefit", func(cmd *UpsertProgramCommand) {
			cmd.Benefits = domain.ProgramBenefits{}
		}},
		{"no targeting without all-products flag", func(cmd *UpsertProgramCommand) {
			cmd.Conditions = domain.ProgramConditions{}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validProgramCommand()
			tc.mutate(&cmd)
			if _, err := svc.CreateProgram(context.Background(), cmd); !errors.Is(err, ErrProgramInvalidInput) {
				t.Fatalf("error = %v, want ErrProgramInvalidInput", err)
			}
		})
	}

	t.Run("all-products flag needs no targeting", func(t *testing.T) {
		cmd := validProgramCommand()
		cmd.Conditions = domain.ProgramConditions{AllProducts: true}
		if _, err := svc.CreateProgram(context.Background(), cmd); err != nil {
			t.Fatalf("CreateProgram: %v", err)
		}
	})
}

func TestProgramService_UpdateProgram(t *testing.T) {
	created := serviceTestNow.Add(-24 * time.Hour)
	repo := &stubProgramRepository{
		programs: map[string]domain.SaleProgram{
			"sp1": {ID: "sp1", Title: "Old", CreatedAt: created},
		},
	}
	publisher := &stubPublisher{}
	svc, err := NewProgramService(ProgramServiceDeps{
		Programs:  repo,
		Publisher: publisher,
		Clock:     fixedClock,
	})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	cmd := validProgramCommand()
	cmd.ID = "sp1"
	program, err := svc.UpdateProgram(context.Background(), cmd)
	if err != nil {
		t.Fatalf("UpdateProgram: %v", err)
	}
	if program.CreatedAt != created {
		t.Fatalf("createdAt = %s, want original %s", program.CreatedAt, created)
	}
	if program.UpdatedAt != serviceTestNow {
		t.Fatalf("updatedAt = %s, want clock time", program.UpdatedAt)
	}
	if len(publisher.events) != 1 || publisher.events[0].Action != "updated" {
		t.Fatalf("events = %v, want one updated event", publisher.events)
	}

	t.Run("missing program", func(t *testing.T) {
		cmd := validProgramCommand()
		cmd.ID = "ghost"
		if _, err := svc.UpdateProgram(context.Background(), cmd); !errors.Is(err, ErrProgramNotFound) {
			t.Fatalf("error = %v, want ErrProgramNotFound", err)
		}
	})
}

func TestProgramService_DeleteProgram(t *testing.T) {
	repo := &stubProgramRepository{
		programs: map[string]domain.SaleProgram{"sp1": {ID: "sp1"}},
	}
	publisher := &stubPublisher{}
	svc, err := NewProgramService(ProgramServiceDeps{Programs: repo, Publisher: publisher, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	if err := svc.DeleteProgram(context.Background(), "sp1"); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	if repo.deletedID != "sp1" {
		t.Fatalf("deletedID = %q, want sp1", repo.deletedID)
	}
	if len(publisher.events) != 1 || publisher.events[0].Action != "deleted" {
		t.Fatalf("events = %v, want one deleted event", publisher.events)
	}

	if err := svc.DeleteProgram(context.Background(), "ghost"); !errors.Is(err, ErrProgramNotFound) {
		t.Fatalf("error = %v, want ErrProgramNotFound", err)
	}
}

func TestProgramService_ActivePrograms(t *testing.T) {
	enabled := []domain.SaleProgram{
		{
			ID:       "sp-live",
			Active:   true,
			StartsAt: serviceTestNow.Add(-time.Hour),
			EndsAt:   serviceTestNow.Add(time.Hour),
		},
		{
			ID:       "sp-expired",
			Active:   true,
			StartsAt: serviceTestNow.Add(-3 * time.Hour),
			EndsAt:   serviceTestNow.Add(-2 * time.Hour),
		},
	}
	repo := &stubProgramRepository{enabled: enabled}
	snapshotCache := newMemorySnapshotCache()
	svc, err := NewProgramService(ProgramServiceDeps{
		Programs: repo,
		Cache:    snapshotCache,
		Clock:    fixedClock,
	})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	active, err := svc.ActivePrograms(context.Background())
	if err != nil {
		t.Fatalf("ActivePrograms: %v", err)
	}
	if len(active) != 1 || active[0].ID != "sp-live" {
		t.Fatalf("active = %v, want only sp-live", active)
	}
	if repo.listCalls != 1 {
		t.Fatalf("listCalls = %d, want 1", repo.listCalls)
	}

	// Second call is served from the cache.
	if _, err := svc.ActivePrograms(context.Background()); err != nil {
		t.Fatalf("ActivePrograms (cached): %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("listCalls = %d, want cache to absorb second read", repo.listCalls)
	}
}

func TestProgramService_ActivePrograms_CacheFailureFallsThrough(t *testing.T) {
	repo := &stubProgramRepository{
		enabled: []domain.SaleProgram{{ID: "sp1", Active: true}},
	}
	snapshotCache := newMemorySnapshotCache()
	snapshotCache.getErr = errors.New("redis down")
	snapshotCache.setErr = errors.New("redis down")

	svc, err := NewProgramService(ProgramServiceDeps{
		Programs: repo,
		Cache:    snapshotCache,
		Clock:    fixedClock,
	})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	active, err := svc.ActivePrograms(context.Background())
	if err != nil {
		t.Fatalf("ActivePrograms: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %v, want repository fallback", active)
	}
}

func TestProgramService_GetProgramCachesReads(t *testing.T) {
	program := domain.SaleProgram{ID: "sp1", Title: "Spring Sale", Active: true}
	repo := &stubProgramRepository{programs: map[string]domain.SaleProgram{"sp1": program}}
	snapshotCache := newMemorySnapshotCache()

	svc, err := NewProgramService(ProgramServiceDeps{
		Programs: repo,
		Cache:    snapshotCache,
		Clock:    fixedClock,
	})
	if err != nil {
		t.Fatalf("NewProgramService: %v", err)
	}

	first, err := svc.GetProgram(context.Background(), "sp1")
	if err != nil {
		t.Fatalf("GetProgram: %v", err)
	}
	if _, ok := snapshotCache.values[cache.ProgramKey("sp1")]; !ok {
		t.Fatal("expected program cached under its key")
	}

	second, err := svc.GetProgram(context.Background(), "sp1")
	if err != nil {
		t.Fatalf("GetProgram (cached): %v", err)
	}
	if repo.findCalls != 1 {
		t.Fatalf("findCalls = %d, want second read served from cache", repo.findCalls)
	}
	if second.ID != first.ID || second.Title != first.Title {
		t.Fatalf("cached = %+v, want %+v", second, first)
	}

	// A mutation purge empties the per-program entries along with the snapshot.
	if err := snapshotCache.DeletePattern(context.Background(), cache.ProgramPattern()); err != nil {
		t.Fatalf("DeletePattern: %v", err)
	}
	if _, err := svc.GetProgram(context.Background(), "sp1"); err != nil {
		t.Fatalf("GetProgram after purge: %v", err)
	}
	if repo.findCalls != 2 {
		t.Fatalf("findCalls = %d, want repository re-read after purge", repo.findCalls)
	}
}
