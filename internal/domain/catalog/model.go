package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service maps to the services table. Prep and cleanup buffers are minutes
// reserved around each booking during which the professional is unavailable.
type Service struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Description     *string         `db:"description" json:"description,omitempty"`
	Price           decimal.Decimal `db:"price" json:"price"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	PrepMinutes     int             `db:"prep_minutes" json:"prep_minutes"`
	CleanupMinutes  int             `db:"cleanup_minutes" json:"cleanup_minutes"`
	Active          bool            `db:"active" json:"active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
