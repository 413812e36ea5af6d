package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/pkg/clock"
)

// ValidateOptions tune a single availability check.
type ValidateOptions struct {
	// ExcludeAppointmentID lets reschedule and update flows ignore the
	// appointment being modified during the conflict check.
	ExcludeAppointmentID *uuid.UUID
	// AllowOutsideShift downgrades OUTSIDE_SHIFT to a warning. Granted to
	// queued walk-ins so a professional already working may run past
	// nominal shift end.
	AllowOutsideShift bool
	IsWalkIn          bool
}

// Validator renders a single admit/reject verdict over shift windows,
// blackout blocks and existing appointments. Checks do not short-circuit:
// the caller sees every violation at once.
type Validator struct {
	schedule ScheduleReader
	repo     Repository
}

func NewValidator(schedule ScheduleReader, repo Repository) *Validator {
	return &Validator{schedule: schedule, repo: repo}
}

func (v *Validator) Validate(ctx context.Context, professionalID uuid.UUID, date time.Time, start, end clock.Time, opts ValidateOptions) (*ValidationResult, error) {
	result := &ValidationResult{}
	day := clock.DateOnly(date)

	// A degenerate interval makes the remaining checks meaningless, so this
	// is the one verdict rendered without consulting the schedule.
	if end <= start {
		result.addError(CodeInvalidRequest, "end time must be after start time")
		return result, nil
	}

	if err := v.checkShift(ctx, professionalID, day, start, end, opts, result); err != nil {
		return nil, err
	}
	if err := v.checkBlackouts(ctx, professionalID, day, start, end, result); err != nil {
		return nil, err
	}
	if err := v.checkConflicts(ctx, professionalID, day, start, end, opts.ExcludeAppointmentID, result); err != nil {
		return nil, err
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (v *Validator) checkShift(ctx context.Context, professionalID uuid.UUID, day time.Time, start, end clock.Time, opts ValidateOptions, result *ValidationResult) error {
	windows, err := v.schedule.WindowsForDay(ctx, professionalID, day)
	if err != nil {
		return fmt.Errorf("load availability windows: %w", err)
	}

	var accepting bool
	var covered bool
	for _, w := range windows {
		if !w.AcceptsBookings {
			continue
		}
		accepting = true
		if w.Covers(start, end) {
			covered = true
			break
		}
	}

	switch {
	case !accepting:
		result.addError(CodeNoShift,
			fmt.Sprintf("professional has no bookable shift on %s", clock.FormatDate(day)))
	case !covered:
		msg := fmt.Sprintf("interval %s-%s falls outside the professional's shift", start, end)
		if opts.AllowOutsideShift {
			result.addWarning(CodeOutsideShift, msg)
		} else {
			result.addError(CodeOutsideShift, msg)
		}
	}
	return nil
}

func (v *Validator) checkBlackouts(ctx context.Context, professionalID uuid.UUID, day time.Time, start, end clock.Time, result *ValidationResult) error {
	blocks, err := v.schedule.BlackoutsForDay(ctx, professionalID, day)
	if err != nil {
		return fmt.Errorf("load blackout blocks: %w", err)
	}
	for _, b := range blocks {
		if b.Intersects(start, end) {
			result.addError(CodeBlocked,
				fmt.Sprintf("blocked by %s: %s", b.Category, b.Title))
		}
	}
	return nil
}

func (v *Validator) checkConflicts(ctx context.Context, professionalID uuid.UUID, day time.Time, start, end clock.Time, exclude *uuid.UUID, result *ValidationResult) error {
	busy, err := v.repo.BusyIntervalsForDay(ctx, professionalID, day, exclude)
	if err != nil {
		return fmt.Errorf("load existing appointments: %w", err)
	}
	for _, b := range busy {
		if b.Overlaps(start, end) {
			ws, we := b.Widened()
			result.addError(CodeConflict,
				fmt.Sprintf("conflicts with appointment %s occupying %s-%s", b.AppointmentID, ws, we))
		}
	}
	return nil
}
