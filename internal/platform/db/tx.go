package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queryer is the minimal query surface shared by pools, scoped connections
// and transactions. Repositories program against it so the same code runs
// inside and outside a booking transaction.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// TxFromContext retrieves the active transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// QueryerFromContext returns the most specific query handle available:
// the active transaction, then the organization-scoped connection, then nil.
func QueryerFromContext(ctx context.Context) Queryer {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	if conn := ConnFromContext(ctx); conn != nil {
		return conn
	}
	return nil
}

// WithTx begins a transaction on the organization-scoped connection in ctx
// and returns a derived context carrying it. The caller owns commit/rollback.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, errors.New("no database connection in context")
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// InTransaction runs fn inside a single transaction on the organization's
// scoped connection, committing on nil and rolling back on error or panic.
// If ctx carries no scoped connection, one is acquired from pool for the
// duration of the transaction. All reads feeding an admit/reject decision
// and the final insert share this one snapshot.
func InTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		// Already transactional: nest via savepoint.
		return WithSavepoint(ctx, fn)
	}

	conn := ConnFromContext(ctx)
	if conn == nil {
		if pool == nil {
			return errors.New("no database connection in context")
		}
		acquired, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer acquired.Release()
		conn = acquired
		ctx = context.WithValue(ctx, DBConnKey, conn)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := context.WithValue(ctx, DBTxKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// WithSavepoint runs fn inside a savepoint on the active transaction. A
// failure in fn rolls back to the savepoint only, leaving the surrounding
// transaction intact. pgx models savepoints as nested transactions.
// If ctx carries no transaction, fn runs directly.
func WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return fn(ctx)
	}

	nested, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	nestedCtx := context.WithValue(ctx, DBTxKey, nested)

	if err := fn(nestedCtx); err != nil {
		_ = nested.Rollback(ctx)
		return err
	}
	return nested.Commit(ctx)
}
