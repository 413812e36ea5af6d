package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository provides access to professionals and their schedule rules.
type Repository interface {
	Create(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	Update(ctx context.Context, p *Professional) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Professional, int, error)

	// Offering returns active professionals assigned to the service, ordered
	// by rotation order then id.
	Offering(ctx context.Context, serviceID uuid.UUID) ([]*Professional, error)
	AssignService(ctx context.Context, professionalID, serviceID uuid.UUID) error
	UnassignService(ctx context.Context, professionalID, serviceID uuid.UUID) error

	CreateWindow(ctx context.Context, w *AvailabilityWindow) error
	DeleteWindow(ctx context.Context, id uuid.UUID) error
	ListWindows(ctx context.Context, professionalID uuid.UUID) ([]*AvailabilityWindow, error)
	// WindowsForDay returns the professional's windows whose weekday matches
	// the date and whose validity range contains it, regardless of whether
	// they accept bookings.
	WindowsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*AvailabilityWindow, error)

	CreateBlackout(ctx context.Context, b *BlackoutBlock) error
	DeleteBlackout(ctx context.Context, id uuid.UUID) error
	ListBlackouts(ctx context.Context, professionalID *uuid.UUID, limit, offset int) ([]*BlackoutBlock, int, error)
	// BlackoutsForDay returns blocks whose date range contains the date and
	// which apply to the professional, including organization-wide blocks.
	BlackoutsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*BlackoutBlock, error)
}
