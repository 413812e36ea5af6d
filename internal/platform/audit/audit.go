// Package audit persists scheduling audit events. Writes are best-effort:
// a failed audit insert is logged and swallowed, never allowed to fail the
// booking that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/agendly/agendly/internal/platform/db"
)

// Event is one audit trail entry.
type Event struct {
	ID            uuid.UUID              `json:"id"`
	EventType     string                 `json:"event_type"`
	Description   string                 `json:"description"`
	AppointmentID *uuid.UUID             `json:"appointment_id,omitempty"`
	UserID        string                 `json:"user_id"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	RecordedAt    time.Time              `json:"recorded_at"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// PGRecorder writes audit events to the audit_log table. When the context
// carries an open transaction the insert runs inside a savepoint, so a
// failure (for example a missing partition) rolls back only the audit row
// and the surrounding booking commits untouched.
type PGRecorder struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPGRecorder(pool *pgxpool.Pool, logger zerolog.Logger) *PGRecorder {
	return &PGRecorder{pool: pool, logger: logger}
}

func (r *PGRecorder) Record(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}

	err := db.WithSavepoint(ctx, func(ctx context.Context) error {
		return r.insert(ctx, event)
	})
	if err != nil {
		r.logger.Error().Err(err).
			Str("event_type", event.EventType).
			Str("user_id", event.UserID).
			Msg("failed to record audit event")
	}
}

func (r *PGRecorder) insert(ctx context.Context, event Event) error {
	var meta []byte
	if event.Metadata != nil {
		var err error
		meta, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	const query = `
		INSERT INTO audit_log (id, event_type, description, appointment_id, user_id, metadata, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	q := db.QueryerFromContext(ctx)
	if q != nil {
		_, err := q.Exec(ctx, query,
			event.ID, event.EventType, event.Description, event.AppointmentID,
			event.UserID, meta, event.RecordedAt)
		return err
	}

	if r.pool == nil {
		return fmt.Errorf("audit: no database connection available")
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("audit: acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, query,
		event.ID, event.EventType, event.Description, event.AppointmentID,
		event.UserID, meta, event.RecordedAt)
	return err
}

// NopRecorder discards all events. Used in tests and dry-run flows.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

// LogRecorder emits events to the structured log only, for deployments that
// keep the audit trail outside the tenant database.
type LogRecorder struct {
	Logger zerolog.Logger
}

func (l LogRecorder) Record(_ context.Context, event Event) {
	evt := l.Logger.Info().
		Str("event_type", event.EventType).
		Str("description", event.Description).
		Str("user_id", event.UserID)
	if event.AppointmentID != nil {
		evt = evt.Str("appointment_id", event.AppointmentID.String())
	}
	evt.Msg("audit")
}
