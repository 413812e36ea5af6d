// Package org holds per-organization scheduling configuration. Each tenant
// schema carries a single org_settings row.
package org

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendly/agendly/internal/platform/db"
)

// Settings is the per-organization configuration row.
type Settings struct {
	Name                 string    `db:"name" json:"name"`
	Timezone             string    `db:"timezone" json:"timezone"`
	RoundRobinEnabled    bool      `db:"round_robin_enabled" json:"round_robin_enabled"`
	DefaultBufferMinutes int       `db:"default_buffer_minutes" json:"default_buffer_minutes"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Location resolves the configured timezone, falling back to UTC when the
// name is unknown.
func (s *Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Repository reads and updates the organization settings row.
type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryer {
	if q := db.QueryerFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *repoPG) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT name, timezone, round_robin_enabled, default_buffer_minutes, updated_at
		FROM org_settings LIMIT 1`).
		Scan(&s.Name, &s.Timezone, &s.RoundRobinEnabled, &s.DefaultBufferMinutes, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("load org settings: %w", err)
	}
	return &s, nil
}

func (r *repoPG) Update(ctx context.Context, s *Settings) error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q", s.Timezone)
	}
	if s.DefaultBufferMinutes < 0 {
		return fmt.Errorf("default_buffer_minutes cannot be negative")
	}
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE org_settings SET name=$1, timezone=$2, round_robin_enabled=$3,
			default_buffer_minutes=$4, updated_at=NOW()`,
		s.Name, s.Timezone, s.RoundRobinEnabled, s.DefaultBufferMinutes)
	return err
}

// SeedDefaults overwrites a freshly migrated tenant's settings row with the
// given values. Meant to run once, right after the tenant schema is created;
// later changes go through the settings endpoint.
func SeedDefaults(ctx context.Context, pool *pgxpool.Pool, tenantID string, s *Settings) error {
	if !db.ValidTenantID(tenantID) {
		return fmt.Errorf("invalid organization identifier: %s", tenantID)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q", s.Timezone)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO org_%s", tenantID)); err != nil {
		return fmt.Errorf("switch to tenant schema: %w", err)
	}
	_, err = conn.Exec(ctx, `
		UPDATE org_settings SET name=$1, timezone=$2, round_robin_enabled=$3,
			default_buffer_minutes=$4, updated_at=NOW()`,
		s.Name, s.Timezone, s.RoundRobinEnabled, s.DefaultBufferMinutes)
	return err
}
