package roster

import (
	"context"
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

const profCols = `id, full_name, email, phone, active, rotation_order, created_at, updated_at`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.Active,
		&p.RotationOrder, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Professional) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO professionals (id, full_name, email, phone, active, rotation_order)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.FullName, p.Email, p.Phone, p.Active, p.RotationOrder)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return scanProfessional(r.conn(ctx).QueryRow(ctx, `SELECT `+profCols+` FROM professionals WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Professional) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE professionals SET full_name=$2, email=$3, phone=$4, active=$5,
			rotation_order=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.Email, p.Phone, p.Active, p.RotationOrder)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM professionals WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Professional, int, error) {
	query := `SELECT ` + profCols + ` FROM professionals WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM professionals WHERE 1=1`
	if activeOnly {
		query += ` AND active = true`
		countQuery += ` AND active = true`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY rotation_order ASC, id ASC LIMIT $%d OFFSET $%d`, 1, 2)

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *repoPG) Offering(ctx context.Context, serviceID uuid.UUID) ([]*Professional, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.full_name, p.email, p.phone, p.active, p.rotation_order, p.created_at, p.updated_at
		FROM professionals p
		JOIN professional_services ps ON ps.professional_id = p.id
		WHERE ps.service_id = $1 AND p.active = true
		ORDER BY p.rotation_order ASC, p.id ASC`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) AssignService(ctx context.Context, professionalID, serviceID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO professional_services (professional_id, service_id)
		VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		professionalID, serviceID)
	return err
}

func (r *repoPG) UnassignService(ctx context.Context, professionalID, serviceID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM professional_services WHERE professional_id = $1 AND service_id = $2`,
		professionalID, serviceID)
	return err
}

const windowCols = `id, professional_id, weekday, start_minute, end_minute,
	accepts_bookings, valid_from, valid_until, created_at, updated_at`

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	err := row.Scan(&w.ID, &w.ProfessionalID, &w.Weekday, &w.StartTime, &w.EndTime,
		&w.AcceptsBookings, &w.ValidFrom, &w.ValidUntil, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *repoPG) CreateWindow(ctx context.Context, w *AvailabilityWindow) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_windows (id, professional_id, weekday, start_minute,
			end_minute, accepts_bookings, valid_from, valid_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		w.ID, w.ProfessionalID, w.Weekday, w.StartTime, w.EndTime,
		w.AcceptsBookings, w.ValidFrom, w.ValidUntil)
	return err
}

func (r *repoPG) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListWindows(ctx context.Context, professionalID uuid.UUID) ([]*AvailabilityWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM availability_windows
		WHERE professional_id = $1
		ORDER BY weekday ASC, start_minute ASC`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (r *repoPG) WindowsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*AvailabilityWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM availability_windows
		WHERE professional_id = $1 AND weekday = $2
			AND (valid_from IS NULL OR valid_from <= $3)
			AND (valid_until IS NULL OR valid_until >= $3)
		ORDER BY start_minute ASC`,
		professionalID, int(date.Weekday()), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

const blackoutCols = `id, professional_id, start_date, end_date, start_minute,
	end_minute, category, title, created_at`

func scanBlackout(row pgx.Row) (*BlackoutBlock, error) {
	var b BlackoutBlock
	err := row.Scan(&b.ID, &b.ProfessionalID, &b.StartDate, &b.EndDate,
		&b.StartTime, &b.EndTime, &b.Category, &b.Title, &b.CreatedAt)
	return &b, err
}

func (r *repoPG) CreateBlackout(ctx context.Context, b *BlackoutBlock) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO blackout_blocks (id, professional_id, start_date, end_date,
			start_minute, end_minute, category, title)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.ProfessionalID, b.StartDate, b.EndDate,
		b.StartTime, b.EndTime, b.Category, b.Title)
	return err
}

func (r *repoPG) DeleteBlackout(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM blackout_blocks WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListBlackouts(ctx context.Context, professionalID *uuid.UUID, limit, offset int) ([]*BlackoutBlock, int, error) {
	query := `SELECT ` + blackoutCols + ` FROM blackout_blocks WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM blackout_blocks WHERE 1=1`
	var args []interface{}
	idx := 1

	if professionalID != nil {
		query += fmt.Sprintf(` AND professional_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND professional_id = $%d`, idx)
		args = append(args, *professionalID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_date DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*BlackoutBlock
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *repoPG) BlackoutsForDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]*BlackoutBlock, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+blackoutCols+` FROM blackout_blocks
		WHERE (professional_id IS NULL OR professional_id = $1)
			AND start_date <= $2 AND end_date >= $2
		ORDER BY start_date ASC`,
		professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BlackoutBlock
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
