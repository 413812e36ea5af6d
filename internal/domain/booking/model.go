package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendly/agendly/pkg/clock"
)

// Status is an appointment's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
	StatusNoShow     Status = "no_show"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusConfirmed: true, StatusInProgress: true,
	StatusCompleted: true, StatusCanceled: true, StatusNoShow: true,
}

// transitions lists the admissible next states per current state. Completed,
// canceled and no_show are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCanceled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCanceled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCanceled},
	StatusCompleted:  {},
	StatusCanceled:   {},
	StatusNoShow:     {},
}

// CanTransition reports whether moving from s to next is admissible.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status freezes core scheduling fields.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Origin channels an appointment can be created through.
const (
	OriginOnline = "online"
	OriginStaff  = "staff"
	OriginWalkIn = "walk_in"
)

// Appointment maps to the appointments table. Cancellation is a status
// change; rows are never physically deleted.
type Appointment struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ClientID        uuid.UUID       `db:"client_id" json:"client_id"`
	ProfessionalID  uuid.UUID       `db:"professional_id" json:"professional_id"`
	BranchID        *uuid.UUID      `db:"branch_id" json:"branch_id,omitempty"`
	Date            time.Time       `db:"date" json:"date"`
	StartTime       clock.Time      `db:"start_minute" json:"start_time"`
	EndTime         clock.Time      `db:"end_minute" json:"end_time"`
	Status          Status          `db:"status" json:"status"`
	Price           decimal.Decimal `db:"price" json:"price"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	SeriesID        *string         `db:"series_id" json:"series_id,omitempty"`
	SeriesSeq       *int            `db:"series_seq" json:"series_seq,omitempty"`
	SeriesTotal     *int            `db:"series_total" json:"series_total,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	Origin          string          `db:"origin" json:"origin"`
	CheckedInAt     *time.Time      `db:"checked_in_at" json:"checked_in_at,omitempty"`
	ActualStartAt   *time.Time      `db:"actual_start_at" json:"actual_start_at,omitempty"`
	ActualEndAt     *time.Time      `db:"actual_end_at" json:"actual_end_at,omitempty"`
	CreatedBy       string          `db:"created_by" json:"created_by"`
	UpdatedBy       *string         `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	Services []*ServiceAssignment `db:"-" json:"services,omitempty"`
}

// EstimatedEnd returns the clock time this appointment is expected to free
// the professional: the real start plus duration when service has begun,
// otherwise the scheduled end.
func (a *Appointment) EstimatedEnd(loc *time.Location) clock.Time {
	if a.ActualEndAt != nil {
		return clock.FromTime(a.ActualEndAt.In(loc))
	}
	if a.ActualStartAt != nil {
		return clock.FromTime(a.ActualStartAt.In(loc)).AddClamped(a.DurationMinutes)
	}
	return a.EndTime
}

// ServiceAssignment is one line item of an appointment. Its date column
// mirrors the parent appointment's date and must be kept in sync whenever
// the appointment is rescheduled.
type ServiceAssignment struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	AppointmentID   uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	ServiceID       uuid.UUID       `db:"service_id" json:"service_id"`
	Date            time.Time       `db:"date" json:"date"`
	Position        int             `db:"position" json:"position"`
	Price           decimal.Decimal `db:"price" json:"price"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Discount        decimal.Decimal `db:"discount" json:"discount"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// BusyInterval is an existing appointment's occupancy on a date, carrying
// the prep buffer of its first service and the cleanup buffer of its last
// service so the conflict detector can widen the interval.
type BusyInterval struct {
	AppointmentID  uuid.UUID
	StartTime      clock.Time
	EndTime        clock.Time
	PrepMinutes    int
	CleanupMinutes int
}

// Widened returns the interval extended by the prep and cleanup buffers,
// clamped to the bounds of the day.
func (b BusyInterval) Widened() (clock.Time, clock.Time) {
	start := b.StartTime.Add(-b.PrepMinutes)
	if start < 0 {
		start = 0
	}
	end := b.EndTime.AddClamped(b.CleanupMinutes)
	return start, end
}

// Overlaps applies half-open interval overlap against a candidate window
// after widening.
func (b BusyInterval) Overlaps(start, end clock.Time) bool {
	ws, we := b.Widened()
	return ws < end && we > start
}
