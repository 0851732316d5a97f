// Package dbx holds the small database helpers every repository leans on:
// the DBTX query surface and two ways of running a unit of work atomically.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is what a repository needs to run queries. *sql.DB, *sql.Tx and
// *sql.Conn all satisfy it, so a repository never knows whether it is
// inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a deferred transaction. The transaction commits when
// fn returns nil and rolls back otherwise; a panic in fn rolls back and is
// re-raised.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// WithImmediateTx is WithTx for read-then-write units. It pins a connection
// and issues BEGIN IMMEDIATE, so the SQLite write lock is taken before fn
// reads anything. Another process holding the database (the daemon and the
// CLI share one file) either waits out busy_timeout or gets SQLITE_BUSY up
// front, never halfway through fn.
//
// fn receives the pinned connection and must use it for every query.
func WithImmediateTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	// ROLLBACK runs on a fresh context: a cancelled ctx must not leave the
	// connection inside an open transaction when it goes back to the pool.
	defer func() {
		if p := recover(); p != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
			panic(p)
		}
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
			return
		}
		if _, cerr := conn.ExecContext(ctx, `COMMIT`); cerr != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
			err = fmt.Errorf("failed to commit: %w", cerr)
		}
	}()

	return fn(ctx, conn)
}
