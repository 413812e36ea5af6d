package catalog

import (
	"context"
	"fmt"

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

const serviceCols = `id, name, description, price, duration_minutes, prep_minutes,
	cleanup_minutes, active, created_at, updated_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes,
		&s.PrepMinutes, &s.CleanupMinutes, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Service) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO services (id, name, description, price, duration_minutes,
			prep_minutes, cleanup_minutes, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.Name, s.Description, s.Price, s.DurationMinutes,
		s.PrepMinutes, s.CleanupMinutes, s.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM services WHERE id = $1`, id))
}

func (r *repoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceCols+` FROM services WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, s *Service) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE services SET name=$2, description=$3, price=$4, duration_minutes=$5,
			prep_minutes=$6, cleanup_minutes=$7, active=$8, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Description, s.Price, s.DurationMinutes,
		s.PrepMinutes, s.CleanupMinutes, s.Active)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Service, int, error) {
	query := `SELECT ` + serviceCols + ` FROM services WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM services WHERE 1=1`
	var args []interface{}
	idx := 1

	if activeOnly {
		query += ` AND active = true`
		countQuery += ` AND active = true`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}
