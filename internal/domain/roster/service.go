package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/pkg/clock"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// -- Professionals --

func (s *Service) CreateProfessional(ctx context.Context, p *Professional) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfessional(ctx context.Context, p *Professional) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeleteProfessional(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListProfessionals(ctx context.Context, activeOnly bool, limit, offset int) ([]*Professional, int, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}

func (s *Service) AssignService(ctx context.Context, professionalID, serviceID uuid.UUID) error {
	return s.repo.AssignService(ctx, professionalID, serviceID)
}

func (s *Service) UnassignService(ctx context.Context, professionalID, serviceID uuid.UUID) error {
	return s.repo.UnassignService(ctx, professionalID, serviceID)
}

// -- Availability windows --

func (s *Service) CreateWindow(ctx context.Context, w *AvailabilityWindow) error {
	if w.ProfessionalID == uuid.Nil {
		return fmt.Errorf("professional_id is required")
	}
	if w.Weekday < 0 || w.Weekday > 6 {
		return fmt.Errorf("weekday must be between 0 and 6")
	}
	if !w.StartTime.Valid() || !w.EndTime.Valid() {
		return fmt.Errorf("invalid time range")
	}
	if w.EndTime <= w.StartTime {
		return fmt.Errorf("end_time must be after start_time")
	}
	if w.ValidFrom != nil && w.ValidUntil != nil && w.ValidUntil.Before(*w.ValidFrom) {
		return fmt.Errorf("valid_until must not precede valid_from")
	}
	return s.repo.CreateWindow(ctx, w)
}

func (s *Service) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteWindow(ctx, id)
}

func (s *Service) ListWindows(ctx context.Context, professionalID uuid.UUID) ([]*AvailabilityWindow, error) {
	return s.repo.ListWindows(ctx, professionalID)
}

func (s *Service) WindowsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*AvailabilityWindow, error) {
	return s.repo.WindowsForDay(ctx, professionalID, clock.DateOnly(date))
}

// -- Blackout blocks --

func (s *Service) CreateBlackout(ctx context.Context, b *BlackoutBlock) error {
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if b.EndDate.Before(b.StartDate) {
		return fmt.Errorf("end_date must not precede start_date")
	}
	if (b.StartTime == nil) != (b.EndTime == nil) {
		return fmt.Errorf("start_time and end_time must be supplied together")
	}
	if b.StartTime != nil && *b.EndTime <= *b.StartTime {
		return fmt.Errorf("end_time must be after start_time")
	}
	if b.Category == "" {
		b.Category = "other"
	}
	b.StartDate = clock.DateOnly(b.StartDate)
	b.EndDate = clock.DateOnly(b.EndDate)
	return s.repo.CreateBlackout(ctx, b)
}

func (s *Service) DeleteBlackout(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBlackout(ctx, id)
}

func (s *Service) ListBlackouts(ctx context.Context, professionalID *uuid.UUID, limit, offset int) ([]*BlackoutBlock, int, error) {
	return s.repo.ListBlackouts(ctx, professionalID, limit, offset)
}

func (s *Service) BlackoutsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*BlackoutBlock, error) {
	return s.repo.BlackoutsForDay(ctx, professionalID, clock.DateOnly(date))
}

// Offering returns active professionals that can perform the service, in
// rotation order.
func (s *Service) Offering(ctx context.Context, serviceID uuid.UUID) ([]*Professional, error) {
	return s.repo.Offering(ctx, serviceID)
}
