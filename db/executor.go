package db

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/seamline/seamline/errors"
)

// Executor is the query-execution boundary used by every seamline component
// that touches the database. Each call acquires its own connection scope from
// the pool and releases it on return; nothing is held across a suspension
// point between reconciliation cycles.
type Executor struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewExecutor creates an executor over an opened database.
func NewExecutor(db *sql.DB, log *zap.SugaredLogger) *Executor {
	return &Executor{db: db, log: log}
}

// DB exposes the underlying handle for callers that manage their own scans.
func (e *Executor) DB() *sql.DB {
	return e.db
}

// Query runs a SELECT and returns the rows. The caller owns rows.Close().
func (e *Executor) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		e.log.Errorw("Query failed", "error", err)
		return nil, errors.Wrap(err, "query")
	}
	return rows, nil
}

// QueryRow runs a SELECT expected to yield at most one row.
func (e *Executor) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return e.db.QueryRowContext(ctx, query, args...)
}

// Update runs an INSERT/UPDATE/DELETE statement.
func (e *Executor) Update(ctx context.Context, query string, args ...interface{}) error {
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		e.log.Errorw("Update failed", "error", err)
		return errors.Wrap(err, "update")
	}
	return nil
}

// Batch executes one statement for every parameter row inside a single
// transaction. The whole batch commits or rolls back together; partial
// per-row failure is not distinguished from total failure.
func (e *Executor) Batch(ctx context.Context, query string, paramRows [][]interface{}) error {
	if len(paramRows) == 0 {
		return nil
	}

	return e.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return errors.Wrap(err, "prepare batch statement")
		}
		defer stmt.Close()

		for _, params := range paramRows {
			if _, err := stmt.ExecContext(ctx, params...); err != nil {
				return errors.Wrap(err, "execute batch row")
			}
		}
		return nil
	})
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error. Every exit path releases the transaction.
func (e *Executor) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		e.log.Errorw("Begin transaction failed", "error", err)
		return errors.Wrap(err, "begin tx")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log.Warnw("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		e.log.Errorw("Commit failed", "error", err)
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
