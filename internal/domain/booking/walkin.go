package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/pkg/clock"
)

// WalkInRequest creates an appointment for a client physically present
// without a prior booking.
type WalkInRequest struct {
	ClientID       uuid.UUID        `json:"client_id"`
	ProfessionalID uuid.UUID        `json:"professional_id"`
	BranchID       *uuid.UUID       `json:"branch_id,omitempty"`
	Services       []ServiceRequest `json:"services"`
	Notes          *string          `json:"notes,omitempty"`
}

// walkInSlot is the computed placement for a walk-in: immediate or queued
// behind the professional's current appointment.
type walkInSlot struct {
	date              time.Time
	start             clock.Time
	status            Status
	allowOutsideShift bool
	actualStart       *time.Time
}

// placeWalkIn determines where a walk-in lands relative to "now" in the
// organization's local time.
//
// A professional serving nobody must be on-shift right now; the walk-in then
// starts immediately as in_progress. A professional mid-service gets the
// walk-in queued (confirmed) at the running appointment's estimated end, and
// the availability check may run past nominal shift end.
func (s *Service) placeWalkIn(ctx context.Context, professionalID uuid.UUID, now time.Time, loc *time.Location) (*walkInSlot, error) {
	localNow := now.In(loc)
	today := clock.DateOnly(localNow)
	nowClock := clock.FromTime(localNow)

	current, err := s.repo.InProgressForProfessional(ctx, professionalID, today)
	if err != nil {
		return nil, err
	}

	if current != nil {
		return &walkInSlot{
			date:              today,
			start:             current.EstimatedEnd(loc),
			status:            StatusConfirmed,
			allowOutsideShift: true,
		}, nil
	}

	onShift, err := s.onShiftAt(ctx, professionalID, today, nowClock)
	if err != nil {
		return nil, err
	}
	if !onShift {
		return nil, NewRejectionError(CodeNotAvailableNow,
			"professional is neither on shift nor serving anyone right now", nil)
	}

	actualStart := now
	return &walkInSlot{
		date:        today,
		start:       nowClock,
		status:      StatusInProgress,
		actualStart: &actualStart,
	}, nil
}

// onShiftAt reports whether any bookable window covers the instant.
func (s *Service) onShiftAt(ctx context.Context, professionalID uuid.UUID, date time.Time, at clock.Time) (bool, error) {
	windows, err := s.schedule.WindowsForDay(ctx, professionalID, date)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.AcceptsBookings && at >= w.StartTime && at < w.EndTime {
			return true, nil
		}
	}
	return false, nil
}
