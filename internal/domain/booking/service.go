package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/agendly/agendly/internal/platform/audit"
	"github.com/agendly/agendly/internal/platform/db"
	"github.com/agendly/agendly/pkg/clock"
)

// Service is the booking engine facade. Every mutating operation runs inside
// one transaction so the availability checks and the final insert observe a
// consistent snapshot; two requests racing for the same slot are serialized
// by the datastore's locking on the appointments table.
type Service struct {
	repo       Repository
	schedule   ScheduleReader
	directory  ProfessionalDirectory
	settings   SettingsReader
	validator  *Validator
	aggregator *Aggregator
	assigner   *Assigner
	audit      audit.Recorder
	pool       *pgxpool.Pool
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, schedule ScheduleReader, directory ProfessionalDirectory,
	settings SettingsReader, resolver ServiceResolver, recorder audit.Recorder,
	pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	validator := NewValidator(schedule, repo)
	s := &Service{
		repo:       repo,
		schedule:   schedule,
		directory:  directory,
		settings:   settings,
		validator:  validator,
		aggregator: NewAggregator(resolver),
		audit:      recorder,
		pool:       pool,
		logger:     logger,
		now:        time.Now,
	}
	s.assigner = NewAssigner(directory, settings, repo, validator)
	return s
}

func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTransaction(ctx, s.pool, fn)
}

// CreateRequest creates a single appointment.
type CreateRequest struct {
	ClientID       uuid.UUID        `json:"client_id"`
	ProfessionalID *uuid.UUID       `json:"professional_id,omitempty"`
	BranchID       *uuid.UUID       `json:"branch_id,omitempty"`
	Date           string           `json:"date"`
	StartTime      clock.Time       `json:"start_time"`
	EndTime        *clock.Time      `json:"end_time,omitempty"`
	Services       []ServiceRequest `json:"services"`
	Notes          *string          `json:"notes,omitempty"`
	Origin         string           `json:"origin,omitempty"`
}

// CreateAppointment resolves services, assigns a professional when none was
// chosen, and persists after one final availability check to close the race
// between selection and commit.
func (s *Service) CreateAppointment(ctx context.Context, req *CreateRequest, userID string) (*Appointment, error) {
	if req.ClientID == uuid.Nil {
		return nil, NewValidationError(CodeInvalidRequest, "client_id is required")
	}
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return nil, NewValidationError(CodeInvalidRequest, fmt.Sprintf("invalid date %q", req.Date))
	}

	var appt *Appointment
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		agg, err := s.aggregator.Resolve(ctx, req.Services)
		if err != nil {
			return err
		}

		end := req.StartTime.AddClamped(agg.DurationMinutes)
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if end <= req.StartTime {
			return NewValidationError(CodeInvalidRequest, "end time must be after start time")
		}

		professionalID, err := s.resolveProfessional(ctx, req.ProfessionalID, req.Services[0].ServiceID, date, req.StartTime, end)
		if err != nil {
			return err
		}

		verdict, err := s.validator.Validate(ctx, professionalID, date, req.StartTime, end, ValidateOptions{})
		if err != nil {
			return err
		}
		if !verdict.Valid {
			return NewConflictError(CodeConflict, "requested time is not available", verdict.Errors)
		}

		origin := req.Origin
		if origin == "" {
			origin = OriginStaff
		}
		appt = &Appointment{
			ClientID:        req.ClientID,
			ProfessionalID:  professionalID,
			BranchID:        req.BranchID,
			Date:            date,
			StartTime:       req.StartTime,
			EndTime:         end,
			Status:          StatusPending,
			Price:           agg.Price,
			DurationMinutes: agg.DurationMinutes,
			Notes:           req.Notes,
			Origin:          origin,
			CreatedBy:       userID,
			Services:        cloneAssignments(agg.Assignments),
		}
		if err := s.repo.Create(ctx, appt); err != nil {
			return fmt.Errorf("persist appointment: %w", err)
		}

		s.recordAudit(ctx, "appointment.created", "appointment created", &appt.ID, userID)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return appt, nil
}

func (s *Service) resolveProfessional(ctx context.Context, explicit *uuid.UUID, serviceID uuid.UUID, date time.Time, start, end clock.Time) (uuid.UUID, error) {
	if explicit != nil {
		if _, err := s.directory.GetByID(ctx, *explicit); err != nil {
			return uuid.Nil, NewNotFoundError("professional not found")
		}
		return *explicit, nil
	}
	chosen, err := s.assigner.Assign(ctx, serviceID, date, start, end)
	if err != nil {
		return uuid.Nil, err
	}
	return chosen.ID, nil
}

// UpdateRequest carries partial changes to an appointment. Nil fields are
// left untouched.
type UpdateRequest struct {
	ProfessionalID *uuid.UUID       `json:"professional_id,omitempty"`
	BranchID       *uuid.UUID       `json:"branch_id,omitempty"`
	Date           *string          `json:"date,omitempty"`
	StartTime      *clock.Time      `json:"start_time,omitempty"`
	EndTime        *clock.Time      `json:"end_time,omitempty"`
	Services       []ServiceRequest `json:"services,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

func (r *UpdateRequest) touchesSchedule() bool {
	return r.ProfessionalID != nil || r.Date != nil || r.StartTime != nil ||
		r.EndTime != nil || len(r.Services) > 0
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *UpdateRequest, userID string) (*Appointment, error) {
	var updated *Appointment
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		appt, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if appt.Status.Terminal() && req.touchesSchedule() {
			return NewConflictError(CodeInvalidTransition,
				fmt.Sprintf("cannot modify scheduling fields of a %s appointment", appt.Status), nil)
		}

		if req.ProfessionalID != nil {
			if _, err := s.directory.GetByID(ctx, *req.ProfessionalID); err != nil {
				return NewNotFoundError("professional not found")
			}
			appt.ProfessionalID = *req.ProfessionalID
		}
		if req.BranchID != nil {
			appt.BranchID = req.BranchID
		}
		if req.Date != nil {
			date, err := clock.ParseDate(*req.Date)
			if err != nil {
				return NewValidationError(CodeInvalidRequest, fmt.Sprintf("invalid date %q", *req.Date))
			}
			appt.Date = date
		}
		if req.StartTime != nil {
			appt.StartTime = *req.StartTime
		}
		if req.Notes != nil {
			appt.Notes = req.Notes
		}

		assignments := appt.Services
		if len(req.Services) > 0 {
			agg, err := s.aggregator.Resolve(ctx, req.Services)
			if err != nil {
				return err
			}
			appt.Price = agg.Price
			appt.DurationMinutes = agg.DurationMinutes
			assignments = cloneAssignments(agg.Assignments)
		}

		if req.EndTime != nil {
			appt.EndTime = *req.EndTime
		} else if req.StartTime != nil || len(req.Services) > 0 {
			appt.EndTime = appt.StartTime.AddClamped(appt.DurationMinutes)
		}
		if appt.EndTime <= appt.StartTime {
			return NewValidationError(CodeInvalidRequest, "end time must be after start time")
		}

		if req.touchesSchedule() {
			verdict, err := s.validator.Validate(ctx, appt.ProfessionalID, appt.Date,
				appt.StartTime, appt.EndTime, ValidateOptions{ExcludeAppointmentID: &appt.ID})
			if err != nil {
				return err
			}
			if !verdict.Valid {
				return NewConflictError(CodeConflict, "updated time is not available", verdict.Errors)
			}
		}

		appt.UpdatedBy = &userID
		// Parent row first, then the mirrored assignment rows, so the
		// compound (appointment, date) key stays valid throughout.
		if err := s.repo.Update(ctx, appt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if req.Date != nil || len(req.Services) > 0 {
			if err := s.repo.ReplaceAssignments(ctx, appt.ID, appt.Date, assignments); err != nil {
				return fmt.Errorf("replace assignments: %w", err)
			}
			appt.Services = assignments
		}

		s.recordAudit(ctx, "appointment.updated", "appointment updated", &appt.ID, userID)
		updated = appt
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return updated, nil
}

// -- Guarded state transitions --

func (s *Service) transition(ctx context.Context, id uuid.UUID, next Status, userID, eventType string, mutate func(*Appointment)) (*Appointment, error) {
	var updated *Appointment
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		appt, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !appt.Status.CanTransition(next) {
			return NewConflictError(CodeInvalidTransition,
				fmt.Sprintf("cannot move appointment from %s to %s", appt.Status, next), nil)
		}
		appt.Status = next
		appt.UpdatedBy = &userID
		if mutate != nil {
			mutate(appt)
		}
		if err := s.repo.Update(ctx, appt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		s.recordAudit(ctx, eventType, fmt.Sprintf("appointment moved to %s", next), &appt.ID, userID)
		updated = appt
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return updated, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason *string, userID string) (*Appointment, error) {
	return s.transition(ctx, id, StatusCanceled, userID, "appointment.canceled", func(a *Appointment) {
		if reason != nil {
			a.Notes = reason
		}
	})
}

func (s *Service) ConfirmAttendance(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, userID, "appointment.confirmed", nil)
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	now := s.now()
	return s.transition(ctx, id, StatusConfirmed, userID, "appointment.checked_in", func(a *Appointment) {
		a.CheckedInAt = &now
	})
}

func (s *Service) StartService(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	now := s.now()
	return s.transition(ctx, id, StatusInProgress, userID, "appointment.started", func(a *Appointment) {
		a.ActualStartAt = &now
	})
}

func (s *Service) CompleteService(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	now := s.now()
	return s.transition(ctx, id, StatusCompleted, userID, "appointment.completed", func(a *Appointment) {
		a.ActualEndAt = &now
	})
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, userID, "appointment.no_show", nil)
}

// Reschedule moves an appointment to a new date/time keeping its services.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date string, start clock.Time, end *clock.Time, userID string) (*Appointment, error) {
	req := &UpdateRequest{Date: &date, StartTime: &start, EndTime: end}
	return s.UpdateAppointment(ctx, id, req, userID)
}

// -- Walk-ins --

func (s *Service) CreateWalkIn(ctx context.Context, req *WalkInRequest, userID string) (*Appointment, error) {
	if req.ClientID == uuid.Nil {
		return nil, NewValidationError(CodeInvalidRequest, "client_id is required")
	}
	if req.ProfessionalID == uuid.Nil {
		return nil, NewValidationError(CodeInvalidRequest, "professional_id is required")
	}

	var appt *Appointment
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		agg, err := s.aggregator.Resolve(ctx, req.Services)
		if err != nil {
			return err
		}
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}

		slot, err := s.placeWalkIn(ctx, req.ProfessionalID, s.now(), settings.Location())
		if err != nil {
			return err
		}

		end := slot.start.AddClamped(agg.DurationMinutes)
		verdict, err := s.validator.Validate(ctx, req.ProfessionalID, slot.date, slot.start, end,
			ValidateOptions{IsWalkIn: true, AllowOutsideShift: slot.allowOutsideShift})
		if err != nil {
			return err
		}
		if !verdict.Valid {
			return NewConflictError(CodeConflict, "walk-in slot is not available", verdict.Errors)
		}

		appt = &Appointment{
			ClientID:        req.ClientID,
			ProfessionalID:  req.ProfessionalID,
			BranchID:        req.BranchID,
			Date:            slot.date,
			StartTime:       slot.start,
			EndTime:         end,
			Status:          slot.status,
			Price:           agg.Price,
			DurationMinutes: agg.DurationMinutes,
			Notes:           req.Notes,
			Origin:          OriginWalkIn,
			ActualStartAt:   slot.actualStart,
			CreatedBy:       userID,
			Services:        cloneAssignments(agg.Assignments),
		}
		if err := s.repo.Create(ctx, appt); err != nil {
			return fmt.Errorf("persist walk-in: %w", err)
		}

		s.recordAudit(ctx, "appointment.walk_in", "walk-in created", &appt.ID, userID)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return appt, nil
}

// -- Recurring series --

func (s *Service) CreateRecurringSeries(ctx context.Context, req *SeriesRequest, userID string) (*SeriesResult, error) {
	if req.ClientID == uuid.Nil {
		return nil, NewValidationError(CodeInvalidRequest, "client_id is required")
	}
	if verr := req.Pattern.Validate(); verr != nil {
		return nil, verr
	}
	startDate, err := clock.ParseDate(req.StartDate)
	if err != nil {
		return nil, NewValidationError(CodeInvalidRequest, fmt.Sprintf("invalid start date %q", req.StartDate))
	}
	dates, verr := req.Pattern.Generate(startDate)
	if verr != nil {
		return nil, verr
	}

	var result *SeriesResult
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		agg, err := s.aggregator.Resolve(ctx, req.Services)
		if err != nil {
			return err
		}

		end := req.StartTime.AddClamped(agg.DurationMinutes)
		if req.EndTime != nil {
			end = *req.EndTime
		}
		professionalID, err := s.resolveProfessional(ctx, req.ProfessionalID, req.Services[0].ServiceID, startDate, req.StartTime, end)
		if err != nil {
			return err
		}

		result, err = s.runSeries(ctx, req, professionalID, agg, dates, userID)
		if err != nil {
			return err
		}

		s.recordAudit(ctx, "series.created",
			fmt.Sprintf("recurring series %s created with %d appointments", result.SeriesID, len(result.Created)),
			nil, userID)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// PreviewRecurringSeries runs the per-date validation without persisting
// anything.
func (s *Service) PreviewRecurringSeries(ctx context.Context, req *SeriesRequest) (*SeriesPreview, error) {
	if verr := req.Pattern.Validate(); verr != nil {
		return nil, verr
	}
	startDate, err := clock.ParseDate(req.StartDate)
	if err != nil {
		return nil, NewValidationError(CodeInvalidRequest, fmt.Sprintf("invalid start date %q", req.StartDate))
	}
	dates, verr := req.Pattern.Generate(startDate)
	if verr != nil {
		return nil, verr
	}

	preview := &SeriesPreview{}
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		agg, err := s.aggregator.Resolve(ctx, req.Services)
		if err != nil {
			return err
		}
		end := req.StartTime.AddClamped(agg.DurationMinutes)
		if req.EndTime != nil {
			end = *req.EndTime
		}
		professionalID, err := s.resolveProfessional(ctx, req.ProfessionalID, req.Services[0].ServiceID, startDate, req.StartTime, end)
		if err != nil {
			return err
		}

		for _, date := range dates {
			day := clock.DateOnly(date)
			verdict, err := s.validator.Validate(ctx, professionalID, day, req.StartTime, end, ValidateOptions{})
			if err != nil {
				return err
			}
			if verdict.Valid {
				preview.Available = append(preview.Available, clock.FormatDate(day))
			} else {
				preview.Unavailable = append(preview.Unavailable, SkippedDate{
					Date:    clock.FormatDate(day),
					Reasons: verdict.Errors,
				})
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return preview, nil
}

func (s *Service) CancelSeries(ctx context.Context, seriesID string, opts CancelSeriesOptions, userID string) (*CancelSeriesResult, error) {
	var fromDate *time.Time
	if opts.FromDate != nil {
		d, err := clock.ParseDate(*opts.FromDate)
		if err != nil {
			return nil, NewValidationError(CodeInvalidRequest, fmt.Sprintf("invalid from date %q", *opts.FromDate))
		}
		fromDate = &d
	}

	result := &CancelSeriesResult{}
	txErr := s.inTx(ctx, func(ctx context.Context) error {
		appts, err := s.repo.ListBySeries(ctx, seriesID)
		if err != nil {
			return err
		}
		if len(appts) == 0 {
			return NewNotFoundError("series not found")
		}

		for _, appt := range appts {
			if appt.Status.Terminal() {
				continue
			}
			if fromDate != nil && appt.Date.Before(*fromDate) {
				continue
			}
			appt.Status = StatusCanceled
			appt.UpdatedBy = &userID
			if opts.Reason != nil {
				appt.Notes = opts.Reason
			}
			if err := s.repo.Update(ctx, appt); err != nil {
				return fmt.Errorf("cancel series appointment: %w", err)
			}
			result.CanceledCount++
			result.Details = append(result.Details, appt.ID)
		}

		s.recordAudit(ctx, "series.canceled",
			fmt.Sprintf("series %s canceled (%d appointments)", seriesID, result.CanceledCount),
			nil, userID)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// -- Reads --

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SearchAppointments(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, filter, limit, offset)
}

func (s *Service) ListSeries(ctx context.Context, seriesID string) ([]*Appointment, error) {
	return s.repo.ListBySeries(ctx, seriesID)
}

func (s *Service) recordAudit(ctx context.Context, eventType, description string, appointmentID *uuid.UUID, userID string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Event{
		EventType:     eventType,
		Description:   description,
		AppointmentID: appointmentID,
		UserID:        userID,
	})
}
