// Package repomanager vends SQLite-backed repositories bound to either the
// shared *sql.DB or a transaction, and applies the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/stealthdetect/internal/dbx"
	"github.com/dmitrijs2005/stealthdetect/internal/migrations"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/credentials"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/metadata"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/scans"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/sessions"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Scans(db dbx.DBTX) scans.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

// SQLiteRepositoryManager is the only RepositoryManager; it holds no state.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Credentials(db dbx.DBTX) credentials.Repository {
	return credentials.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLiteRepository(db)
}

// Scans returns the raw scan repository. Presentation-facing code wraps it
// with scans.Guarded.
func (m *SQLiteRepositoryManager) Scans(db dbx.DBTX) scans.Repository {
	return scans.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations with the sqlite3 dialect.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
