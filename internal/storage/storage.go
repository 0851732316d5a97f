// Package storage opens the on-device SQLite database and brings its schema
// up to date.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/stealthdetect/internal/filex"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"

	_ "modernc.org/sqlite"
)

// Open opens dsn with the pure-Go sqlite driver and runs migrations.
//
// The pool is pinned to a single connection. Code running inside dbx.WithTx
// or dbx.WithImmediateTx must use the handle it is given for every query or
// it deadlocks.
func Open(ctx context.Context, dsn string, rm repomanager.RepositoryManager) (*sql.DB, error) {
	if path := filex.DatabasePath(dsn); path != "" {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("failed to prepare database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
