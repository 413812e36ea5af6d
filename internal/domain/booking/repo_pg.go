package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendly/agendly/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryer {
	if q := db.QueryerFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const apptCols = `id, client_id, professional_id, branch_id, date, start_minute, end_minute,
	status, price, duration_minutes, series_id, series_seq, series_total, notes, origin,
	checked_in_at, actual_start_at, actual_end_at, created_by, updated_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClientID, &a.ProfessionalID, &a.BranchID, &a.Date,
		&a.StartTime, &a.EndTime, &a.Status, &a.Price, &a.DurationMinutes,
		&a.SeriesID, &a.SeriesSeq, &a.SeriesTotal, &a.Notes, &a.Origin,
		&a.CheckedInAt, &a.ActualStartAt, &a.ActualEndAt,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, client_id, professional_id, branch_id, date,
			start_minute, end_minute, status, price, duration_minutes,
			series_id, series_seq, series_total, notes, origin,
			checked_in_at, actual_start_at, actual_end_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		a.ID, a.ClientID, a.ProfessionalID, a.BranchID, a.Date,
		a.StartTime, a.EndTime, a.Status, a.Price, a.DurationMinutes,
		a.SeriesID, a.SeriesSeq, a.SeriesTotal, a.Notes, a.Origin,
		a.CheckedInAt, a.ActualStartAt, a.ActualEndAt, a.CreatedBy)
	if err != nil {
		return err
	}
	for i, sa := range a.Services {
		sa.AppointmentID = a.ID
		sa.Date = a.Date
		sa.Position = i
		if err := r.insertAssignment(ctx, sa); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) insertAssignment(ctx context.Context, sa *ServiceAssignment) error {
	sa.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_services (id, appointment_id, service_id, date,
			position, price, duration_minutes, discount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sa.ID, sa.AppointmentID, sa.ServiceID, sa.Date,
		sa.Position, sa.Price, sa.DurationMinutes, sa.Discount)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFoundError("appointment not found")
		}
		return nil, err
	}
	a.Services, err = r.assignments(ctx, id)
	return a, err
}

func (r *repoPG) assignments(ctx context.Context, appointmentID uuid.UUID) ([]*ServiceAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, service_id, date, position, price, duration_minutes, discount, created_at
		FROM appointment_services WHERE appointment_id = $1 ORDER BY position ASC`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceAssignment
	for rows.Next() {
		var sa ServiceAssignment
		if err := rows.Scan(&sa.ID, &sa.AppointmentID, &sa.ServiceID, &sa.Date,
			&sa.Position, &sa.Price, &sa.DurationMinutes, &sa.Discount, &sa.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &sa)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET professional_id=$2, branch_id=$3, date=$4,
			start_minute=$5, end_minute=$6, status=$7, price=$8, duration_minutes=$9,
			series_total=$10, notes=$11,
			checked_in_at=$12, actual_start_at=$13, actual_end_at=$14,
			updated_by=$15, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.ProfessionalID, a.BranchID, a.Date,
		a.StartTime, a.EndTime, a.Status, a.Price, a.DurationMinutes,
		a.SeriesTotal, a.Notes,
		a.CheckedInAt, a.ActualStartAt, a.ActualEndAt, a.UpdatedBy)
	return err
}

// ReplaceAssignments must run after the parent row's date is updated so the
// mirrored date column stays consistent with it.
func (r *repoPG) ReplaceAssignments(ctx context.Context, appointmentID uuid.UUID, date time.Time, assignments []*ServiceAssignment) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM appointment_services WHERE appointment_id = $1`, appointmentID); err != nil {
		return err
	}
	for i, sa := range assignments {
		sa.AppointmentID = appointmentID
		sa.Date = date
		sa.Position = i
		if err := r.insertAssignment(ctx, sa); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1

	addFilter := func(clause string, value interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, value)
		idx++
	}

	if filter.ClientID != nil {
		addFilter(` AND client_id = $%d`, *filter.ClientID)
	}
	if filter.ProfessionalID != nil {
		addFilter(` AND professional_id = $%d`, *filter.ProfessionalID)
	}
	if filter.Status != nil {
		addFilter(` AND status = $%d`, *filter.Status)
	}
	if filter.DateFrom != nil {
		addFilter(` AND date >= $%d`, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		addFilter(` AND date <= $%d`, *filter.DateTo)
	}
	if filter.SeriesID != nil {
		addFilter(` AND series_id = $%d`, *filter.SeriesID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY date DESC, start_minute DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

// BusyIntervalsForDay resolves each appointment's prep buffer from its first
// service and cleanup buffer from its last service, by execution order. Only
// the boundary services extend the physically occupied interval.
func (r *repoPG) BusyIntervalsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]BusyInterval, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.start_minute, a.end_minute,
			COALESCE((SELECT s.prep_minutes
				FROM appointment_services asv JOIN services s ON s.id = asv.service_id
				WHERE asv.appointment_id = a.id ORDER BY asv.position ASC LIMIT 1), 0),
			COALESCE((SELECT s.cleanup_minutes
				FROM appointment_services asv JOIN services s ON s.id = asv.service_id
				WHERE asv.appointment_id = a.id ORDER BY asv.position DESC LIMIT 1), 0)
		FROM appointments a
		WHERE a.professional_id = $1 AND a.date = $2 AND a.status <> 'canceled'
			AND ($3::uuid IS NULL OR a.id <> $3)
		ORDER BY a.start_minute ASC`,
		professionalID, date, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BusyInterval
	for rows.Next() {
		var b BusyInterval
		if err := rows.Scan(&b.AppointmentID, &b.StartTime, &b.EndTime,
			&b.PrepMinutes, &b.CleanupMinutes); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *repoPG) InProgressForProfessional(ctx context.Context, professionalID uuid.UUID, date time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE professional_id = $1 AND date = $2 AND status = 'in_progress'
		ORDER BY start_minute DESC LIMIT 1`,
		professionalID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *repoPG) LastAssignedProfessional(ctx context.Context, serviceID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.professional_id
		FROM appointments a
		JOIN appointment_services asv ON asv.appointment_id = a.id
		WHERE asv.service_id = $1 AND a.status <> 'canceled'
		ORDER BY a.created_at DESC LIMIT 1`, serviceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *repoPG) ListBySeries(ctx context.Context, seriesID string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE series_id = $1 ORDER BY date ASC, start_minute ASC`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateSeriesTotals(ctx context.Context, seriesID string, total int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET series_total = $2, updated_at = NOW()
		WHERE series_id = $1`, seriesID, total)
	return err
}
