package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/internal/domain/roster"
	"github.com/agendly/agendly/pkg/clock"
)

// Assigner picks a professional for an appointment when the caller did not
// choose one, balancing rotation fairness against real-time availability.
type Assigner struct {
	directory ProfessionalDirectory
	settings  SettingsReader
	repo      Repository
	validator *Validator
}

func NewAssigner(directory ProfessionalDirectory, settings SettingsReader, repo Repository, validator *Validator) *Assigner {
	return &Assigner{directory: directory, settings: settings, repo: repo, validator: validator}
}

// Assign returns the professional who should receive the appointment, or a
// NO_AVAILABILITY rejection when no candidate admits the interval.
//
// The rotation cursor is derived from the appointment table itself (most
// recent non-canceled booking for the service) rather than a separate
// mutable row that could drift from reality.
func (as *Assigner) Assign(ctx context.Context, serviceID uuid.UUID, date time.Time, start, end clock.Time) (*roster.Professional, error) {
	candidates, err := as.directory.Offering(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load professionals for service: %w", err)
	}
	if len(candidates) == 0 {
		return nil, NewRejectionError(CodeNoAvailability,
			"no active professional offers this service", nil)
	}

	settings, err := as.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	if !settings.RoundRobinEnabled || len(candidates) == 1 {
		return as.tryOne(ctx, candidates[0], date, start, end)
	}

	startIdx, err := as.nextIndex(ctx, serviceID, candidates)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(candidates); i++ {
		candidate := candidates[(startIdx+i)%len(candidates)]
		result, err := as.validator.Validate(ctx, candidate.ID, date, start, end, ValidateOptions{})
		if err != nil {
			return nil, err
		}
		if result.Valid {
			return candidate, nil
		}
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.FullName
	}
	return nil, NewRejectionError(CodeNoAvailability,
		fmt.Sprintf("no professional available at the requested time (tried: %s)", strings.Join(names, ", ")),
		nil)
}

func (as *Assigner) tryOne(ctx context.Context, candidate *roster.Professional, date time.Time, start, end clock.Time) (*roster.Professional, error) {
	result, err := as.validator.Validate(ctx, candidate.ID, date, start, end, ValidateOptions{})
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, NewRejectionError(CodeNoAvailability,
			fmt.Sprintf("%s is not available at the requested time", candidate.FullName),
			result.Errors)
	}
	return candidate, nil
}

// nextIndex computes where the rotation probe starts: one past the
// professional who most recently received this service, wrapping. When that
// professional no longer appears among the candidates, the probe starts at 0.
func (as *Assigner) nextIndex(ctx context.Context, serviceID uuid.UUID, candidates []*roster.Professional) (int, error) {
	lastID, err := as.repo.LastAssignedProfessional(ctx, serviceID)
	if err != nil {
		return 0, fmt.Errorf("load last assignment: %w", err)
	}
	if lastID == uuid.Nil {
		return 0, nil
	}
	for i, c := range candidates {
		if c.ID == lastID {
			return (i + 1) % len(candidates), nil
		}
	}
	return 0, nil
}
