package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Manager holds catalog business rules.
type Manager struct {
	repo Repository
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) CreateService(ctx context.Context, s *Service) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if s.PrepMinutes < 0 || s.CleanupMinutes < 0 {
		return fmt.Errorf("buffer minutes cannot be negative")
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	return m.repo.Create(ctx, s)
}

func (m *Manager) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return m.repo.GetByID(ctx, id)
}

func (m *Manager) UpdateService(ctx context.Context, s *Service) error {
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if s.PrepMinutes < 0 || s.CleanupMinutes < 0 {
		return fmt.Errorf("buffer minutes cannot be negative")
	}
	return m.repo.Update(ctx, s)
}

func (m *Manager) DeleteService(ctx context.Context, id uuid.UUID) error {
	return m.repo.Delete(ctx, id)
}

func (m *Manager) ListServices(ctx context.Context, activeOnly bool, limit, offset int) ([]*Service, int, error) {
	return m.repo.List(ctx, activeOnly, limit, offset)
}
