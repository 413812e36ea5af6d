package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one plain SQL file from the migrations directory, named
// NNN_description.sql. The numeric prefix is the version.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus pairs a known migration with whether a given tenant schema
// has applied it yet.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies SQL migrations against one tenant schema at a time. Each
// org_<tenant> schema tracks its own applied set in a _migrations table, so a
// freshly created organization can be brought to head independently of every
// other one.
type Migrator struct {
	pool *pgxpool.Pool
	dir  string
}

func NewMigrator(pool *pgxpool.Pool, dir string) *Migrator {
	return &Migrator{pool: pool, dir: dir}
}

// checkSchema rejects schema names that are unsafe to interpolate into SQL.
// Tenant schemas are always org_<identifier>, which this pattern covers.
func checkSchema(schema string) error {
	if !tenantIDPattern.MatchString(schema) {
		return fmt.Errorf("unsafe schema name %q", schema)
	}
	return nil
}

// LoadMigrations reads every NNN_*.sql file from the directory and returns
// them ordered by version. Files without a numeric prefix are not migrations
// and are skipped.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %s: %w", m.dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, found := strings.Cut(name, "_")
		if !found {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		sql, err := os.ReadFile(filepath.Join(m.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(sql),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every pending migration to the schema in version order, each in
// its own transaction, and reports how many ran.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	if err := m.ensureTracking(ctx, schema); err != nil {
		return 0, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}
	applied, err := m.appliedAt(ctx, schema)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if _, done := applied[mig.Version]; done {
			continue
		}
		if err := m.apply(ctx, schema, mig); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// Status reports every known migration and whether the schema has applied it.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	if err := m.ensureTracking(ctx, schema); err != nil {
		return nil, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedAt(ctx, schema)
	if err != nil {
		return nil, err
	}

	var statuses []MigrationStatus
	for _, mig := range migrations {
		s := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			s.Applied = true
			appliedAt := at
			s.AppliedAt = &appliedAt
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// ensureTracking creates the schema's _migrations table when missing.
func (m *Migrator) ensureTracking(ctx context.Context, schema string) error {
	if err := checkSchema(schema); err != nil {
		return err
	}
	_, err := m.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s._migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`, schema))
	if err != nil {
		return fmt.Errorf("create _migrations table in %s: %w", schema, err)
	}
	return nil
}

// appliedAt returns the schema's applied versions keyed to when each ran.
func (m *Migrator) appliedAt(ctx context.Context, schema string) (map[int]time.Time, error) {
	rows, err := m.pool.Query(ctx,
		fmt.Sprintf("SELECT version, applied_at FROM %s._migrations", schema))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations in %s: %w", schema, err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// apply runs one migration inside a transaction with search_path pinned to
// the tenant schema, recording it in _migrations on success.
func (m *Migrator) apply(ctx context.Context, schema string, mig Migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO _migrations (version, name) VALUES ($1, $2)",
		mig.Version, mig.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit(ctx)
}
