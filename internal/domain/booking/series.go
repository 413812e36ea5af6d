package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/pkg/clock"
)

// SeriesRequest creates or previews a recurring series.
type SeriesRequest struct {
	ClientID       uuid.UUID        `json:"client_id"`
	ProfessionalID *uuid.UUID       `json:"professional_id,omitempty"`
	BranchID       *uuid.UUID       `json:"branch_id,omitempty"`
	StartDate      string           `json:"start_date"`
	StartTime      clock.Time       `json:"start_time"`
	EndTime        *clock.Time      `json:"end_time,omitempty"`
	Services       []ServiceRequest `json:"services"`
	Pattern        RecurrencePattern `json:"pattern"`
	Notes          *string          `json:"notes,omitempty"`
}

// SkippedDate names a date the orchestrator could not admit and why.
type SkippedDate struct {
	Date    string  `json:"date"`
	Reasons []Issue `json:"reasons"`
}

// SeriesResult reports the admitted/skipped partition of a series run.
type SeriesResult struct {
	SeriesID string         `json:"series_id"`
	Created  []*Appointment `json:"created"`
	Skipped  []SkippedDate  `json:"skipped"`
	Warnings []Issue        `json:"warnings,omitempty"`
}

// SeriesPreview is the dry-run counterpart of SeriesResult.
type SeriesPreview struct {
	Available   []string      `json:"available"`
	Unavailable []SkippedDate `json:"unavailable"`
	Warnings    []Issue       `json:"warnings,omitempty"`
}

// CancelSeriesOptions narrow a series cancellation.
type CancelSeriesOptions struct {
	// FromDate limits cancellation to appointments on or after the date.
	FromDate *string `json:"from_date,omitempty"`
	Reason   *string `json:"reason,omitempty"`
}

// CancelSeriesResult reports how many appointments a series cancellation
// touched.
type CancelSeriesResult struct {
	CanceledCount int         `json:"canceled_count"`
	Details       []uuid.UUID `json:"details"`
}

// runSeries walks the generated dates sequentially: later dates' conflict
// checks must observe appointments admitted by earlier iterations within the
// same transaction.
func (s *Service) runSeries(ctx context.Context, req *SeriesRequest, professionalID uuid.UUID, agg *Aggregate, dates []time.Time, userID string) (*SeriesResult, error) {
	seriesID := uuid.NewString()
	result := &SeriesResult{SeriesID: seriesID}

	end := req.StartTime.AddClamped(agg.DurationMinutes)
	if req.EndTime != nil {
		end = *req.EndTime
	}

	for _, date := range dates {
		day := clock.DateOnly(date)
		verdict, err := s.validator.Validate(ctx, professionalID, day, req.StartTime, end, ValidateOptions{})
		if err != nil {
			return nil, err
		}
		if !verdict.Valid {
			result.Skipped = append(result.Skipped, SkippedDate{
				Date:    clock.FormatDate(day),
				Reasons: verdict.Errors,
			})
			continue
		}

		seq := len(result.Created) + 1
		appt := &Appointment{
			ClientID:        req.ClientID,
			ProfessionalID:  professionalID,
			BranchID:        req.BranchID,
			Date:            day,
			StartTime:       req.StartTime,
			EndTime:         end,
			Status:          StatusPending,
			Price:           agg.Price,
			DurationMinutes: agg.DurationMinutes,
			SeriesID:        &seriesID,
			SeriesSeq:       &seq,
			Notes:           req.Notes,
			Origin:          OriginStaff,
			CreatedBy:       userID,
			Services:        cloneAssignments(agg.Assignments),
		}
		if err := s.repo.Create(ctx, appt); err != nil {
			return nil, fmt.Errorf("persist series appointment: %w", err)
		}
		result.Created = append(result.Created, appt)
	}

	if len(result.Created) == 0 {
		return nil, NewConflictError(CodeEmptySeries,
			"no dates in the series could be booked", flattenSkipped(result.Skipped))
	}

	// Back-fill the achieved count onto every admitted row.
	total := len(result.Created)
	if err := s.repo.UpdateSeriesTotals(ctx, seriesID, total); err != nil {
		return nil, fmt.Errorf("update series totals: %w", err)
	}
	for _, a := range result.Created {
		t := total
		a.SeriesTotal = &t
	}

	if total >= MaxOccurrences-2 {
		result.Warnings = append(result.Warnings, Issue{
			Code:    CodeNearSeriesCap,
			Message: fmt.Sprintf("series admitted %d occurrences, close to the %d cap", total, MaxOccurrences),
		})
	}
	return result, nil
}

func flattenSkipped(skipped []SkippedDate) []Issue {
	var issues []Issue
	for _, s := range skipped {
		for _, r := range s.Reasons {
			issues = append(issues, Issue{
				Code:    r.Code,
				Message: fmt.Sprintf("%s: %s", s.Date, r.Message),
			})
		}
	}
	return issues
}

func cloneAssignments(src []*ServiceAssignment) []*ServiceAssignment {
	out := make([]*ServiceAssignment, len(src))
	for i, sa := range src {
		copied := *sa
		out[i] = &copied
	}
	return out
}
