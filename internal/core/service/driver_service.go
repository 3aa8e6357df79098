package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

type DriverService struct {
	repo   ports.DriverRepository
	logger zerolog.Logger
}

func NewDriverService(repo ports.DriverRepository, logger zerolog.Logger) *DriverService {
	return &DriverService{repo: repo, logger: logger}
}

// ListDrivers returns all courier records.
func (s *DriverService) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	drivers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return drivers, nil
}
