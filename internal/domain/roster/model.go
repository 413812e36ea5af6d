package roster

import (
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/pkg/clock"
)

// Professional maps to the professionals table. RotationOrder drives the
// round-robin assignment order; ties break on id.
type Professional struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Active        bool      `db:"active" json:"active"`
	RotationOrder int       `db:"rotation_order" json:"rotation_order"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityWindow is a recurring weekly shift. Weekday follows time.Weekday
// numbering (0 = Sunday). A window only admits bookings while the date falls
// inside its validity range and AcceptsBookings is set.
type AvailabilityWindow struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ProfessionalID  uuid.UUID  `db:"professional_id" json:"professional_id"`
	Weekday         int        `db:"weekday" json:"weekday"`
	StartTime       clock.Time `db:"start_minute" json:"start_time"`
	EndTime         clock.Time `db:"end_minute" json:"end_time"`
	AcceptsBookings bool       `db:"accepts_bookings" json:"accepts_bookings"`
	ValidFrom       *time.Time `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil      *time.Time `db:"valid_until" json:"valid_until,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the candidate interval falls fully inside the window.
func (w *AvailabilityWindow) Covers(start, end clock.Time) bool {
	return start >= w.StartTime && end <= w.EndTime
}

// BlackoutBlock is a one-off exclusion. A nil ProfessionalID makes the block
// organization-wide. Nil time bounds mean the block covers the whole day.
type BlackoutBlock struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	ProfessionalID *uuid.UUID  `db:"professional_id" json:"professional_id,omitempty"`
	StartDate      time.Time   `db:"start_date" json:"start_date"`
	EndDate        time.Time   `db:"end_date" json:"end_date"`
	StartTime      *clock.Time `db:"start_minute" json:"start_time,omitempty"`
	EndTime        *clock.Time `db:"end_minute" json:"end_time,omitempty"`
	Category       string      `db:"category" json:"category"`
	Title          string      `db:"title" json:"title"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// Intersects reports whether the block overlaps the candidate interval on the
// given date. The date must already fall within the block's date range.
func (b *BlackoutBlock) Intersects(start, end clock.Time) bool {
	if b.StartTime == nil || b.EndTime == nil {
		return true
	}
	return *b.StartTime < end && *b.EndTime > start
}
