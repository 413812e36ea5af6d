package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	DBConnKey   contextKey = "db_conn"
	DBTxKey     contextKey = "db_tx"
)

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidTenantID reports whether the identifier is safe to interpolate into a
// schema name.
func ValidTenantID(id string) bool { return tenantIDPattern.MatchString(id) }

// TenantMiddleware resolves the organization for each request, acquires a
// connection scoped to that organization's schema, and stashes it in the
// request context. Every repository read and write downstream goes through
// that scoped connection, so organization isolation never depends on
// per-query WHERE clauses.
func TenantMiddleware(pool *pgxpool.Pool, defaultTenant string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := extractTenantID(c, defaultTenant)

			if !tenantIDPattern.MatchString(tenantID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid organization identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			schema := fmt.Sprintf("org_%s", tenantID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "organization resolution failed")
			}

			ctx = context.WithValue(ctx, TenantIDKey, tenantID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("tenant_id", tenantID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractTenantID(c echo.Context, defaultTenant string) string {
	// 1. JWT claim (set by auth middleware)
	if tid, ok := c.Get("jwt_tenant_id").(string); ok && tid != "" {
		return tid
	}

	// 2. X-Org-ID header
	if tid := c.Request().Header.Get("X-Org-ID"); tid != "" {
		return tid
	}

	// 3. Query parameter
	if tid := c.QueryParam("org_id"); tid != "" {
		return tid
	}

	return defaultTenant
}

// ConnFromContext retrieves the organization-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TenantFromContext retrieves the organization ID from context.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(TenantIDKey).(string)
	return tid
}

// CreateTenantSchema creates a new schema for an organization and runs all
// migrations against it. If migrationsDir is empty, migrations are skipped.
func CreateTenantSchema(ctx context.Context, pool *pgxpool.Pool, tenantID string, migrationsDir string) error {
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("invalid organization identifier: %s", tenantID)
	}

	schema := fmt.Sprintf("org_%s", tenantID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
