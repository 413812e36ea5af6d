package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/internal/domain/catalog"
	"github.com/agendly/agendly/internal/domain/org"
	"github.com/agendly/agendly/internal/domain/roster"
)

// Repository persists appointments and their service assignments.
type Repository interface {
	// Create inserts the appointment and its assignments together. The
	// caller supplies the surrounding transaction through the context.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// ReplaceAssignments deletes the appointment's assignment rows and
	// reinserts the given set. The parent row must already carry the date
	// the new rows mirror.
	ReplaceAssignments(ctx context.Context, appointmentID uuid.UUID, date time.Time, assignments []*ServiceAssignment) error
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Appointment, int, error)

	// BusyIntervalsForDay returns the professional's non-canceled
	// appointments on the date with their boundary-service buffers,
	// optionally excluding one appointment id.
	BusyIntervalsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]BusyInterval, error)
	// InProgressForProfessional returns the professional's in_progress
	// appointment on the date, or nil when none exists.
	InProgressForProfessional(ctx context.Context, professionalID uuid.UUID, date time.Time) (*Appointment, error)
	// LastAssignedProfessional returns the professional who most recently
	// received a non-canceled appointment containing the service, by
	// creation time. Returns uuid.Nil when no such appointment exists.
	LastAssignedProfessional(ctx context.Context, serviceID uuid.UUID) (uuid.UUID, error)

	ListBySeries(ctx context.Context, seriesID string) ([]*Appointment, error)
	// UpdateSeriesTotals back-fills the achieved occurrence count onto all
	// appointments of the series.
	UpdateSeriesTotals(ctx context.Context, seriesID string, total int) error
}

// SearchFilter narrows an appointment search. Zero values are ignored.
type SearchFilter struct {
	ClientID       *uuid.UUID
	ProfessionalID *uuid.UUID
	Status         *Status
	DateFrom       *time.Time
	DateTo         *time.Time
	SeriesID       *string
}

// ServiceResolver resolves catalog services by id. Satisfied by the catalog
// repository; injected so the aggregator does not reach sideways into a peer
// package.
type ServiceResolver interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Service, error)
}

// ScheduleReader reads a professional's recurring windows and one-off
// blackout blocks. Satisfied by the roster repository.
type ScheduleReader interface {
	WindowsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*roster.AvailabilityWindow, error)
	BlackoutsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*roster.BlackoutBlock, error)
}

// ProfessionalDirectory looks up professionals for assignment. Satisfied by
// the roster repository.
type ProfessionalDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*roster.Professional, error)
	Offering(ctx context.Context, serviceID uuid.UUID) ([]*roster.Professional, error)
}

// SettingsReader exposes the organization configuration. Satisfied by the
// org repository.
type SettingsReader interface {
	Get(ctx context.Context) (*org.Settings, error)
}
