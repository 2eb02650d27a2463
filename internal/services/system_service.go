package services

import (
	"context"
	"errors"
	"time"

	"github.com/shiny-beauty/api/internal/domain"
	"github.com/shiny-beauty/api/internal/repositories"
)

// SystemServiceDeps bundles constructor inputs for the system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Build            BuildInfo
	Clock            func() time.Time
}

type systemService struct {
	health repositories.HealthRepository
	build  BuildInfo
	clock  func() time.Time
}

// NewSystemService wires a SystemService over the dependency health repository.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock().UTC()
	}
	return &systemService{
		health: deps.HealthRepository,
		build:  build,
		clock:  func() time.Time { return clock().UTC() },
	}, nil
}

func (s *systemService) Health(ctx context.Context) (domain.SystemHealthReport, error) {
	if s == nil || s.health == nil {
		return domain.SystemHealthReport{}, errors.New("system service not initialised")
	}
	return s.health.Collect(ctx)
}

func (s *systemService) Build() BuildInfo {
	if s == nil {
		return BuildInfo{}
	}
	return s.build
}
